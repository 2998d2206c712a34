package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearSecretEnv(t *testing.T) {
	t.Setenv(SessionSecretEnv, "")
	t.Setenv(SessionSecretEnv+"_FILE", "")
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "captcha.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearSecretEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":28416", cfg.Server.Addr)
	assert.Equal(t, "./static", cfg.Server.StaticDir)
	assert.Equal(t, "./image_cache", cfg.Images.CacheDir)
	assert.Equal(t, 60*time.Second, cfg.SweepInterval())
	assert.Empty(t, cfg.Audit.SQLitePath)
	assert.Equal(t, 7*24*time.Hour, cfg.ImageMaxAge())
	assert.Equal(t, 20, cfg.Images.MaxPerCategory)

	cc := cfg.Challenge()
	assert.Equal(t, 6, cc.TextLength)
	assert.False(t, cc.TextCaseSensitive)
	assert.Equal(t, 3, cc.GridRequiredSelections)
	assert.Equal(t, 10, cc.SliderTolerance)
	assert.Equal(t, 15, cc.DragTolerance)
	assert.Equal(t, 3, cc.DragPieces)
	assert.Equal(t, 9, cc.DragCells)
	assert.Equal(t, 5*time.Minute, cc.TTL)
	assert.Equal(t, 4, cc.RenderWorkers)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	clearSecretEnv(t)
	path := writeConfig(t, `
version: 1
server:
  addr: "127.0.0.1:9000"
captcha:
  text_length: 8
  text_case_sensitive: true
  challenge_ttl_seconds: 30
audit:
  sqlite_path: /tmp/audit.db
logging:
  level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, "./static", cfg.Server.StaticDir)
	assert.Equal(t, "/tmp/audit.db", cfg.Audit.SQLitePath)
	assert.Equal(t, "debug", cfg.Logging.Level)

	cc := cfg.Challenge()
	assert.Equal(t, 8, cc.TextLength)
	assert.True(t, cc.TextCaseSensitive)
	assert.Equal(t, 30*time.Second, cc.TTL)
	assert.Equal(t, 10, cc.SliderTolerance)
}

func TestLoad_Errors(t *testing.T) {
	clearSecretEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeConfig(t, "version: 2\n"))
	assert.ErrorContains(t, err, "unsupported config version")

	_, err = Load(writeConfig(t, "version: [\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "version: 1\ncaptcha:\n  drag_pieces: 10\n"))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"empty addr":       func(c *Config) { c.Server.Addr = "" },
		"zero text":        func(c *Config) { c.Captcha.TextLength = 0 },
		"zero selections":  func(c *Config) { c.Captcha.GridRequiredSelections = 0 },
		"negative slider":  func(c *Config) { c.Captcha.SliderTolerancePx = -1 },
		"negative drag":    func(c *Config) { c.Captcha.DragTolerancePx = -1 },
		"zero cells":       func(c *Config) { c.Captcha.DragCells = 0 },
		"zero ttl":         func(c *Config) { c.Captcha.ChallengeTTLSeconds = 0 },
		"zero sweep":       func(c *Config) { c.Captcha.SweepIntervalSeconds = 0 },
		"zero workers":     func(c *Config) { c.Render.Workers = 0 },
		"bad log level":    func(c *Config) { c.Logging.Level = "loud" },
		"pieces over cell": func(c *Config) { c.Captcha.DragPieces = 12 },
		"negative max age": func(c *Config) { c.Images.MaxAgeDays = -1 },
		"negative max per": func(c *Config) { c.Images.MaxPerCategory = -1 },
	}
	for name, mutate := range cases {
		cfg := Default()
		mutate(cfg)
		assert.ErrorIs(t, cfg.Validate(), ErrInvalid, name)
	}
	assert.NoError(t, Default().Validate())
}

func TestLoad_SessionSecretFromEnv(t *testing.T) {
	clearSecretEnv(t)
	path := writeConfig(t, "version: 1\nserver:\n  session_secret: from-file-config\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file-config", cfg.Server.SessionSecret)

	t.Setenv(SessionSecretEnv, "from-env")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Server.SessionSecret)
}

func TestResolveSecret(t *testing.T) {
	const env = "CAPTCHA_TEST_SECRET"

	t.Setenv(env, "")
	t.Setenv(env+"_FILE", "")
	v, err := ResolveSecret(env)
	require.NoError(t, err)
	assert.Empty(t, v)

	t.Setenv(env, "env-value")
	v, err = ResolveSecret(env)
	require.NoError(t, err)
	assert.Equal(t, "env-value", v)

	file := filepath.Join(t.TempDir(), "secret.txt")
	require.NoError(t, os.WriteFile(file, []byte("file-value\n"), 0o600))
	t.Setenv(env+"_FILE", file)
	v, err = ResolveSecret(env)
	require.NoError(t, err)
	assert.Equal(t, "file-value", v, "_FILE wins and is trimmed")

	blank := filepath.Join(t.TempDir(), "blank.txt")
	require.NoError(t, os.WriteFile(blank, []byte(" \n"), 0o600))
	t.Setenv(env+"_FILE", blank)
	_, err = ResolveSecret(env)
	assert.ErrorIs(t, err, ErrInvalid)

	t.Setenv(env+"_FILE", filepath.Join(t.TempDir(), "nope"))
	_, err = ResolveSecret(env)
	assert.Error(t, err)
}

func TestSessionKey(t *testing.T) {
	cfg := Default()
	cfg.Server.SessionSecret = "configured"
	key, generated, err := cfg.SessionKey()
	require.NoError(t, err)
	assert.False(t, generated)
	assert.Equal(t, []byte("configured"), key)

	cfg.Server.SessionSecret = ""
	a, generated, err := cfg.SessionKey()
	require.NoError(t, err)
	assert.True(t, generated)
	assert.Len(t, a, 32)
	b, _, err := cfg.SessionKey()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestLoad_ImageLimits(t *testing.T) {
	clearSecretEnv(t)
	cfg, err := Load(writeConfig(t, "version: 1
images:
  max_age_days: 0
  max_per_category: 5
"))
	require.NoError(t, err)
	assert.Zero(t, cfg.ImageMaxAge())
	assert.Equal(t, 5, cfg.Images.MaxPerCategory)
}
