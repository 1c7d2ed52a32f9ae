package setup

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itchan-dev/guestbook/internal/config"
	"github.com/itchan-dev/guestbook/internal/domain"
	"github.com/itchan-dev/guestbook/web"
)

func TestLoadTemplates(t *testing.T) {
	t.Run("embedded", func(t *testing.T) {
		templates, err := LoadTemplates(web.Templates())
		require.NoError(t, err)
		assert.Contains(t, templates, "index.html")
		assert.NotContains(t, templates, "base.html")
	})

	t.Run("missing base", func(t *testing.T) {
		fsys := fstest.MapFS{"index.html": {Data: []byte(`{{define "content"}}x{{end}}`)}}
		_, err := LoadTemplates(fsys)
		assert.Error(t, err)
	})

	t.Run("syntax error", func(t *testing.T) {
		fsys := fstest.MapFS{
			"base.html":  {Data: []byte(`{{template "content" .}}`)},
			"index.html": {Data: []byte(`{{define "content"}}{{.Broken{{end}}`)},
		}
		_, err := LoadTemplates(fsys)
		assert.Error(t, err)
	})

	t.Run("no pages", func(t *testing.T) {
		fsys := fstest.MapFS{"base.html": {Data: []byte(`base`)}}
		_, err := LoadTemplates(fsys)
		assert.Error(t, err)
	})
}

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Public.Storage.SQLitePath = filepath.Join(dir, "guestbook.db")
	cfg.Public.Storage.UploadDir = filepath.Join(dir, "uploads")
	return cfg
}

func render(deps *Dependencies) string {
	rr := httptest.NewRecorder()
	deps.Handler.Index(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	return rr.Body.String()
}

func TestSetupDependencies(t *testing.T) {
	cfg := testConfig(t)

	deps, err := SetupDependencies(context.Background(), cfg)
	require.NoError(t, err)
	defer deps.Close()

	assert.NoError(t, deps.Storage.Ping(context.Background()))
	assert.Equal(t, filepath.Clean(cfg.Public.Storage.UploadDir), deps.Media.Root())
	assert.Contains(t, render(deps), "Guestbook")
}

func TestSetupDependencies_BadTemplateDir(t *testing.T) {
	cfg := testConfig(t)
	cfg.Public.Templates.Dir = filepath.Join(t.TempDir(), "missing")

	_, err := SetupDependencies(context.Background(), cfg)
	assert.Error(t, err)
}

func TestTemplateReload(t *testing.T) {
	tmplDir := t.TempDir()
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(tmplDir, name), []byte(content), 0644))
	}
	write("base.html", `{{template "content" .}}`)
	write("index.html", `{{define "content"}}v1{{end}}`)

	cfg := testConfig(t)
	cfg.Public.Templates.Dir = tmplDir
	cfg.Public.Templates.Reload = true

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps, err := SetupDependencies(ctx, cfg)
	require.NoError(t, err)
	defer deps.Close()

	assert.Equal(t, "v1", render(deps))

	write("index.html", `{{define "content"}}v2{{end}}`)
	assert.Eventually(t, func() bool { return render(deps) == "v2" }, 5*time.Second, 50*time.Millisecond)

	// a broken edit keeps the last good set
	write("index.html", `{{define "content"}}{{.Broken{{end}}`)
	time.Sleep(4 * templateReloadDelay)
	assert.Equal(t, "v2", render(deps))
}

func TestGarbageCollectorWiring(t *testing.T) {
	cfg := testConfig(t)
	cfg.Public.Storage.GCInterval = 0
	cfg.Public.Storage.GCMinAge = 0

	deps, err := SetupDependencies(context.Background(), cfg)
	require.NoError(t, err)
	defer deps.Close()

	kept, err := deps.Media.Save("kept.png", strings.NewReader("k"))
	require.NoError(t, err)
	orphan, err := deps.Media.Save("orphan.png", strings.NewReader("o"))
	require.NoError(t, err)
	_, err = deps.Storage.CreateMessage(context.Background(), domain.MessageCreationData{Name: "a", Text: "b", Attachment: kept})
	require.NoError(t, err)

	stats, err := deps.GC.RunCleanup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesDeleted)

	names, err := deps.Media.List()
	require.NoError(t, err)
	assert.Equal(t, []string{kept.Name}, names)
	assert.NotContains(t, names, orphan.Name)
}
