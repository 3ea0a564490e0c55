package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
environment: development
server:
  port: 8080
  read_timeout: 10s
kafka:
  brokers: ["localhost:9092"]
  signals_topic: trade-signals
feed:
  symbols: ["X:BTCUSD", "X:ETHUSD"]
ensemble:
  models_path: config/models.yaml
advisory:
  timeout: 300ms
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"X:BTCUSD", "X:ETHUSD"}, cfg.Feed.Symbols)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout.Std())
	assert.Equal(t, 300*time.Millisecond, cfg.Advisory.Timeout.Std())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	_, err := Load(writeConfig(t, `
environment: development
server:
  read_timeout: soon
`))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing environment", `
feed:
  symbols: ["X:BTCUSD"]
ensemble:
  models_path: m.yaml
kafka:
  signals_topic: t
`},
		{"missing symbols", `
environment: development
ensemble:
  models_path: m.yaml
kafka:
  signals_topic: t
`},
		{"missing models path", `
environment: development
feed:
  symbols: ["X:BTCUSD"]
kafka:
  signals_topic: t
`},
		{"bad history backend", `
environment: development
feed:
  symbols: ["X:BTCUSD"]
ensemble:
  models_path: m.yaml
kafka:
  signals_topic: t
backtest:
  history_backend: postgres
`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("FEED_API_KEY", "key-from-env")
	t.Setenv("SYMBOLS", "X:SOLUSD,X:ADAUSD")
	t.Setenv("KAFKA_SIGNALS_TOPIC", "signals-staging")

	cfg, err := LoadWithEnv(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "key-from-env", cfg.Feed.APIKey)
	assert.Equal(t, []string{"X:SOLUSD", "X:ADAUSD"}, cfg.Feed.Symbols)
	assert.Equal(t, "signals-staging", cfg.Kafka.SignalsTopic)
}

func TestDurationAcceptsNanoseconds(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
environment: development
server:
  read_timeout: 5000000000
kafka:
  signals_topic: t
feed:
  symbols: ["X:BTCUSD"]
ensemble:
  models_path: m.yaml
`))
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout.Std())
}
