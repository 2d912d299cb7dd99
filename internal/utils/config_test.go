package utils_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benmeehan/sengled-bridge/internal/utils"
	"github.com/benmeehan/sengled-bridge/pkg/file"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
cloud:
  username: "you@example.com"
  password: "hunter2"
  http_timeout: 15

mqtt:
  qos: 1
  connect_timeout: 20
  op_timeout: 5

connection:
  login_retry_delay: 3
  reconnect_delay: 7

lights:
  min_mireds: 160
  max_mireds: 380
`)

	config, err := utils.LoadConfig(path, file.NewFileService())
	require.NoError(t, err)

	assert.Equal(t, "you@example.com", config.Cloud.Username)
	assert.Equal(t, 15*time.Second, config.Cloud.HTTPTimeout)
	assert.Equal(t, 1, config.MQTT.QOS)
	assert.Equal(t, 20*time.Second, config.MQTT.ConnectTimeout)
	assert.Equal(t, 5*time.Second, config.MQTT.OpTimeout)
	assert.Equal(t, 3*time.Second, config.Connection.LoginRetryDelay)
	assert.Equal(t, 7*time.Second, config.Connection.ReconnectDelay)
	assert.Equal(t, 160, config.Lights.MinMireds)
	assert.Equal(t, 380, config.Lights.MaxMireds)
}

func TestLoadConfigAppliesDurationDefaults(t *testing.T) {
	path := writeConfig(t, `
cloud:
  username: "you@example.com"
  password: "hunter2"
`)

	config, err := utils.LoadConfig(path, file.NewFileService())
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, config.Cloud.HTTPTimeout)
	assert.Equal(t, 30*time.Second, config.MQTT.ConnectTimeout)
	assert.Equal(t, 10*time.Second, config.MQTT.OpTimeout)
	assert.Equal(t, 10*time.Second, config.Connection.LoginRetryDelay)
	assert.Equal(t, 10*time.Second, config.Connection.ReconnectDelay)
}

func TestLoadConfigMissingCredentials(t *testing.T) {
	path := writeConfig(t, `
cloud:
  username: "you@example.com"
`)

	_, err := utils.LoadConfig(path, file.NewFileService())
	assert.ErrorContains(t, err, "missing cloud credentials")
}

func TestLoadConfigMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.yaml")
	_, err := utils.LoadConfig(path, file.NewFileService())
	assert.Error(t, err)
}
