package container

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skilld/internal/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.Config{
		SkillsDir:         filepath.Join(root, "data", "skills"),
		CatalogDir:        filepath.Join(root, "catalog"),
		PrioritySkills:    []string{"weather"},
		BlacklistedSkills: []string{"spam"},
		Platform:          "lab",
	}
	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestNewWiresServices(t *testing.T) {
	cfg := testConfig(t)
	c, err := New(cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, c.Manager())
	require.NotNil(t, c.Bus())
	require.NotNil(t, c.Handler())

	p := c.Paths()
	assert.Equal(t, cfg.SkillsDir, p.SkillsDir)
	assert.Equal(t, c.Manager().SkillsDir(), p.SkillsDir)
	assert.Equal(t, filepath.Join(filepath.Dir(cfg.SkillsDir), "update.lock"), p.LockPath)
	fi, err := os.Stat(p.SkillsDir)
	require.NoError(t, err)
	assert.True(t, fi.IsDir())

	assert.Equal(t, "lab.connected", c.Manager().ConnectedTopic())
	assert.True(t, c.Manager().Status().Update.Enabled)
}

func TestHandlerServesStatus(t *testing.T) {
	c, err := New(testConfig(t), zerolog.Nop())
	require.NoError(t, err)
	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNewReportsPathErrors(t *testing.T) {
	cfg := testConfig(t)
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	cfg.SkillsDir = filepath.Join(blocker, "skills")
	_, err := New(cfg, zerolog.Nop())
	assert.Error(t, err)
}
