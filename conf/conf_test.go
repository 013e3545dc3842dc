package conf_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/profound-academy/backend/conf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_KEY", "secret")

	cfg, err := conf.Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HttpAddr)
	assert.Equal(t, conf.StoreMemory, cfg.StoreBackend)
	assert.Equal(t, 5, cfg.StoreMaxAttempts)
	assert.Equal(t, time.Second, cfg.JudgeTimeout)
	assert.Equal(t, "dev", cfg.Env)
	assert.Empty(t, cfg.ResultsSqsURL)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
http_addr = ":9000"
store_backend = "dynamodb"
ddb_table = "docs"
store_max_attempts = 8
judge_url = "http://judge/submit"
judge_callback_url = "http://api/results"
judge_callback_secret = "cb-secret"
judge_timeout = "1500ms"
jwt_key = "from-file"
`), 0o644))
	t.Setenv("JWT_KEY", "from-env")
	t.Setenv("STORE_MAX_ATTEMPTS", "3")

	cfg, err := conf.Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.HttpAddr)
	assert.Equal(t, conf.StoreDynamoDB, cfg.StoreBackend)
	assert.Equal(t, "docs", cfg.DdbTable)
	assert.Equal(t, 3, cfg.StoreMaxAttempts)
	assert.Equal(t, 1500*time.Millisecond, cfg.JudgeTimeout)
	assert.Equal(t, "from-env", cfg.JwtKey)
	assert.Equal(t, "cb-secret", cfg.JudgeCallbackSecret)
}

func TestLoadMissingRequired(t *testing.T) {
	t.Setenv("JWT_KEY", "")
	t.Setenv("STORE_BACKEND", conf.StoreDynamoDB)
	t.Setenv("JUDGE_URL", "http://judge/submit")

	_, err := conf.Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_KEY")
	assert.Contains(t, err.Error(), "DDB_TABLE")
	assert.Contains(t, err.Error(), "JUDGE_CALLBACK_URL")
	assert.Contains(t, err.Error(), "JUDGE_CALLBACK_SECRET")
}

func TestLoadInvalidValues(t *testing.T) {
	t.Setenv("JWT_KEY", "secret")
	t.Setenv("STORE_MAX_ATTEMPTS", "many")
	_, err := conf.Load("")
	assert.Error(t, err)

	t.Setenv("STORE_MAX_ATTEMPTS", "5")
	t.Setenv("JUDGE_TIMEOUT", "soon")
	_, err = conf.Load("")
	assert.Error(t, err)

	_, err = conf.Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
