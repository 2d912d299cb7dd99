package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/benmeehan/sengled-bridge/internal/connection"
	"github.com/benmeehan/sengled-bridge/internal/devices"
	"github.com/benmeehan/sengled-bridge/internal/models"
	"github.com/benmeehan/sengled-bridge/internal/session"
	"github.com/benmeehan/sengled-bridge/internal/utils"
	"github.com/benmeehan/sengled-bridge/pkg/file"
	"github.com/benmeehan/sengled-bridge/pkg/mqtt"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	configPath := "configs/config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	// Load configuration from file
	fileClient := file.NewFileService()
	config, err := utils.LoadConfig(configPath, fileClient)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if level, err := zerolog.ParseLevel(config.Logging.Level); err == nil && config.Logging.Level != "" {
		logger = logger.Level(level)
	}
	if config.Logging.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   config.Logging.File,
			MaxSize:    config.Logging.MaxSizeMB,
			MaxBackups: config.Logging.MaxBackups,
		}
		logger = logger.Output(zerolog.MultiLevelWriter(
			zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339},
			rotator,
		))
	}

	credentials := models.Credentials{
		Username: config.Cloud.Username,
		Password: config.Cloud.Password,
	}

	sessionClient, err := session.NewHTTPClient(
		credentials,
		config.Cloud.LoginURL,
		config.Cloud.ServerInfoURL,
		config.Cloud.DeviceListURL,
		config.Cloud.HTTPTimeout,
		logger,
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create session client")
	}

	registry := devices.NewRegistry()
	mqttClient := mqtt.NewPahoService(config.MQTT.ConnectTimeout, config.MQTT.OpTimeout, logger)

	observer := func(d *devices.Device) {
		event := logger.Info().Str("device_id", d.ID()).Str("name", d.Name())
		if on, ok := d.IsOn(); ok {
			event = event.Bool("on", on)
		}
		if brightness, ok := d.Brightness(); ok {
			event = event.Int("brightness", brightness)
		}
		event.Msg("Device state changed")
	}

	manager := connection.NewManager(
		connection.Config{
			QOS:             byte(config.MQTT.QOS),
			LoginRetryDelay: config.Connection.LoginRetryDelay,
			ReconnectDelay:  config.Connection.ReconnectDelay,
			MinMireds:       config.Lights.MinMireds,
			MaxMireds:       config.Lights.MaxMireds,
		},
		sessionClient,
		mqttClient,
		registry,
		observer,
		logger,
	)

	if err := manager.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start connection manager")
	}

	// Handle graceful shutdown
	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	<-stopCh

	logger.Info().Msg("Shutting down gracefully...")
	if err := manager.Stop(); err != nil {
		logger.Error().Err(err).Msg("Shutdown reported an error")
	}
}
