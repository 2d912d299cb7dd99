package utils

import (
	"fmt"
	"time"

	"github.com/benmeehan/sengled-bridge/pkg/file"
)

// Config represents the structure of the configuration file.
type Config struct {
	Cloud struct {
		Username      string        `yaml:"username"`        // Cloud account username
		Password      string        `yaml:"password"`        // Cloud account password
		LoginURL      string        `yaml:"login_url"`       // Override for the login endpoint
		ServerInfoURL string        `yaml:"server_info_url"` // Override for the server-info endpoint
		DeviceListURL string        `yaml:"device_list_url"` // Override for the device-list endpoint
		HTTPTimeout   time.Duration `yaml:"http_timeout"`    // Timeout for each cloud HTTP call (in seconds)
	} `yaml:"cloud"`

	MQTT struct {
		QOS            int           `yaml:"qos"`             // QoS level for subscriptions and publishes
		ConnectTimeout time.Duration `yaml:"connect_timeout"` // Timeout for the broker connect (in seconds)
		OpTimeout      time.Duration `yaml:"op_timeout"`      // Timeout for publish/subscribe operations (in seconds)
	} `yaml:"mqtt"`

	Connection struct {
		LoginRetryDelay time.Duration `yaml:"login_retry_delay"` // Delay between failed login attempts (in seconds)
		ReconnectDelay  time.Duration `yaml:"reconnect_delay"`   // Delay before reconnecting a dropped session (in seconds)
	} `yaml:"connection"`

	Lights struct {
		MinMireds int `yaml:"min_mireds"` // Cool end of the color temperature range
		MaxMireds int `yaml:"max_mireds"` // Warm end of the color temperature range
	} `yaml:"lights"`

	Logging struct {
		Level      string `yaml:"level"`       // zerolog level name
		File       string `yaml:"file"`        // Log file path; empty logs to stdout only
		MaxSizeMB  int    `yaml:"max_size_mb"` // Log file size before rotation
		MaxBackups int    `yaml:"max_backups"` // Rotated files to keep
	} `yaml:"logging"`
}

// LoadConfig loads the YAML configuration from the specified file and applies
// defaults for unset durations.
func LoadConfig(filename string, fileClient file.FileOperations) (*Config, error) {
	exists, err := fileClient.IsFileExists(filename)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("config file %s does not exist", filename)
	}

	var config Config
	if err := fileClient.ReadYamlFile(filename, &config); err != nil {
		return nil, err
	}

	// Durations in the file are plain seconds; scale them once here.
	if config.Cloud.HTTPTimeout <= 0 {
		config.Cloud.HTTPTimeout = 30
	}
	if config.MQTT.ConnectTimeout <= 0 {
		config.MQTT.ConnectTimeout = 30
	}
	if config.MQTT.OpTimeout <= 0 {
		config.MQTT.OpTimeout = 10
	}
	if config.Connection.LoginRetryDelay <= 0 {
		config.Connection.LoginRetryDelay = 10
	}
	if config.Connection.ReconnectDelay <= 0 {
		config.Connection.ReconnectDelay = 10
	}
	config.Cloud.HTTPTimeout *= time.Second
	config.MQTT.ConnectTimeout *= time.Second
	config.MQTT.OpTimeout *= time.Second
	config.Connection.LoginRetryDelay *= time.Second
	config.Connection.ReconnectDelay *= time.Second

	if config.Cloud.Username == "" || config.Cloud.Password == "" {
		return nil, fmt.Errorf("config file %s is missing cloud credentials", filename)
	}

	return &config, nil
}
