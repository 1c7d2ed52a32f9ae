package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/itchan-dev/guestbook/internal/logger"
	"github.com/itchan-dev/guestbook/internal/router"
	"github.com/itchan-dev/guestbook/internal/setup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Open the message store and serve the guestbook",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := setup.SetupDependencies(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Log.Error("closing dependencies", "error", err)
		}
	}()

	server := &http.Server{
		Addr:              cfg.Public.Server.Addr,
		Handler:           router.New(deps.Handler, cfg.Public),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Public.Server.ReadTimeout,
		WriteTimeout:      cfg.Public.Server.WriteTimeout,
	}

	listener, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", server.Addr, err)
	}
	logStartup(listener.Addr(), cfg.Public.Storage.Driver)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(listener)
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Public.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

func logStartup(addr net.Addr, driver string) {
	port := 0
	host := ""
	if tcp, ok := addr.(*net.TCPAddr); ok {
		port = tcp.Port
		if !tcp.IP.IsUnspecified() {
			host = tcp.IP.String()
		}
	}
	if host == "" {
		host = "localhost"
	}

	attrs := []any{"url", fmt.Sprintf("http://%s", net.JoinHostPort(host, fmt.Sprint(port))), "driver", driver}
	if ip, err := localIP(); err == nil {
		attrs = append(attrs, "lan_url", fmt.Sprintf("http://%s", net.JoinHostPort(ip.String(), fmt.Sprint(port))))
	}
	logger.Log.Info("guestbook listening", attrs...)
}

// localIP finds the address of the outbound interface. Dialing UDP sends no packets.
func localIP() (net.IP, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	udpAddr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return nil, fmt.Errorf("unexpected local address %v", conn.LocalAddr())
	}
	return udpAddr.IP, nil
}
