package config

import (
	"errors"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Public  Public
	Private Private
}

type Public struct {
	Server    Server    `yaml:"server"`
	Storage   Storage   `yaml:"storage"`
	Log       Log       `yaml:"log"`
	Templates Templates `yaml:"templates"`
}

type Server struct {
	Addr            string        `yaml:"addr" validate:"required"`
	ReadTimeout     time.Duration `yaml:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" validate:"gte=0"` // 0 keeps long uploads alive
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
	MaxRequestBytes int64         `yaml:"max_request_bytes" validate:"gte=0"` // 0 means unlimited
	HTTPS           bool          `yaml:"https"`
	// CORS is only enabled when at least one origin is listed
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
}

type Storage struct {
	Driver     string `yaml:"driver" validate:"oneof=sqlite postgres"`
	SQLitePath string `yaml:"sqlite_path" validate:"required_if=Driver sqlite"`
	UploadDir  string `yaml:"upload_dir" validate:"required"`

	// GCInterval 0 disables the background sweep of unreferenced uploads
	GCInterval time.Duration `yaml:"gc_interval" validate:"gte=0"`
	// GCMinAge protects uploads whose row is not inserted yet
	GCMinAge time.Duration `yaml:"gc_min_age" validate:"gt=0"`
}

type Log struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	JSON  bool   `yaml:"json"`
}

// Templates points at an on-disk template folder. Empty Dir uses the embedded templates.
type Templates struct {
	Dir    string `yaml:"dir"`
	Reload bool   `yaml:"reload"`
}

type Private struct {
	Pg Pg `yaml:"pg"`
}

type Pg struct {
	Host     string `yaml:"host" validate:"required"`
	Port     int    `yaml:"port" validate:"required,gt=0"`
	User     string `yaml:"user" validate:"required"`
	Password string `yaml:"password"`
	Dbname   string `yaml:"dbname" validate:"required"`
}

// Default keeps the database file and the uploads folder in the working directory.
func Default() *Config {
	return &Config{
		Public: Public{
			Server: Server{
				Addr:            "127.0.0.1:8080",
				ReadTimeout:     0,
				WriteTimeout:    0,
				ShutdownTimeout: 10 * time.Second,
			},
			Storage: Storage{
				Driver:     DriverSQLite,
				SQLitePath: "guestbook.db",
				UploadDir:  "uploads",
				GCInterval: time.Hour,
				GCMinAge:   time.Hour,
			},
			Log: Log{Level: "info"},
		},
	}
}

func loadPath(configPath string, output interface{}) error {
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("can't read config file %s: %w", configPath, err)
	}

	if err := yaml.Unmarshal(configFile, output); err != nil {
		return fmt.Errorf("can't unmarshal config file %s: %w", configPath, err)
	}
	return nil
}

// Load reads public.yaml and private.yaml from configFolder on top of Default().
// Both files are optional, the folder itself is not. An empty folder means defaults only.
func Load(configFolder string) (*Config, error) {
	cfg := Default()

	if configFolder != "" {
		if _, err := os.Stat(configFolder); err != nil {
			return nil, fmt.Errorf("config folder %s: %w", configFolder, err)
		}
		if err := loadPath(path.Join(configFolder, "public.yaml"), &cfg.Public); err != nil {
			return nil, err
		}
		if err := loadPath(path.Join(configFolder, "private.yaml"), &cfg.Private); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(&c.Public); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Public.Storage.Driver == DriverPostgres {
		if err := validate.Struct(&c.Private.Pg); err != nil {
			return fmt.Errorf("invalid postgres config: %w", err)
		}
	}
	return nil
}
