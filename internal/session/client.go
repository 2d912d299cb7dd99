// Package session implements the HTTP side of the cloud bridge: login,
// broker resolution and device discovery, correlated through a shared
// cookie jar.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/benmeehan/sengled-bridge/internal/codec"
	"github.com/benmeehan/sengled-bridge/internal/models"
)

// Default vendor endpoints.
const (
	DefaultLoginURL      = "https://ucenter.cloud.sengled.com/user/app/customer/v2/AuthenCross.json"
	DefaultServerInfoURL = "https://life2.cloud.sengled.com/life2/server/getServerInfo.json"
	DefaultDeviceListURL = "https://life2.cloud.sengled.com/life2/device/list.json"
)

// Fixed client-identification fields the login endpoint expects.
const (
	osType      = "android"
	productCode = "life"
	appCode     = "life"
)

// Client is the contract the connection manager consumes for all cloud HTTP
// calls. Retrying is the caller's responsibility; no call retries internally.
type Client interface {
	// Login authenticates and returns a fresh session. Returns an AuthError
	// when the transport status is non-success or the vendor result code is
	// non-zero.
	Login(ctx context.Context) (*models.Session, error)

	// ResolveBrokerInfo fetches the MQTT broker endpoint for the live session.
	ResolveBrokerInfo(ctx context.Context) (*models.BrokerEndpoint, error)

	// ListDevices fetches and normalizes the account's device list.
	ListDevices(ctx context.Context) ([]map[string]string, error)

	// Shutdown releases the underlying transport. Idempotent.
	Shutdown()
}

// HTTPClient implements Client against the vendor cloud.
type HTTPClient struct {
	loginURL      string
	serverInfoURL string
	deviceListURL string
	credentials   models.Credentials
	http          *http.Client
	logger        zerolog.Logger
}

// NewHTTPClient creates a session client. Empty endpoint URLs fall back to
// the vendor defaults.
func NewHTTPClient(credentials models.Credentials, loginURL, serverInfoURL, deviceListURL string,
	timeout time.Duration, logger zerolog.Logger) (*HTTPClient, error) {

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	if loginURL == "" {
		loginURL = DefaultLoginURL
	}
	if serverInfoURL == "" {
		serverInfoURL = DefaultServerInfoURL
	}
	if deviceListURL == "" {
		deviceListURL = DefaultDeviceListURL
	}

	return &HTTPClient{
		loginURL:      loginURL,
		serverInfoURL: serverInfoURL,
		deviceListURL: deviceListURL,
		credentials:   credentials,
		http: &http.Client{
			Jar:     jar,
			Timeout: timeout,
		},
		logger: logger,
	}, nil
}

// Login sends the structured login payload and returns the issued session.
func (c *HTTPClient) Login(ctx context.Context) (*models.Session, error) {
	payload := models.LoginRequest{
		UUID:        requestID(),
		User:        c.credentials.Username,
		Pwd:         c.credentials.Password,
		OsType:      osType,
		ProductCode: productCode,
		AppCode:     appCode,
	}

	resp, err := c.postJSON(ctx, c.loginURL, payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &models.AuthError{Reason: fmt.Sprintf("login returned status %d", resp.StatusCode)}
	}

	var body models.LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &models.TransportError{Op: "decode login response", Err: err}
	}
	if body.Ret != 0 {
		return nil, &models.AuthError{Reason: fmt.Sprintf("login rejected (ret=%d): %s", body.Ret, body.Msg)}
	}

	c.logger.Info().Msg("Cloud login complete")
	return &models.Session{ID: body.JSessionID}, nil
}

// ResolveBrokerInfo fetches the broker URLs using the live session's cookies.
// The load-balancer address is informational only; the inception address is
// the MQTT broker the manager connects to.
func (c *HTTPClient) ResolveBrokerInfo(ctx context.Context) (*models.BrokerEndpoint, error) {
	resp, err := c.postJSON(ctx, c.serverInfoURL, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &models.TransportError{Op: "server info", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var body models.ServerInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &models.TransportError{Op: "decode server info", Err: err}
	}

	endpoint, err := models.ParseBrokerEndpoint(body.InceptionAddr)
	if err != nil {
		return nil, &models.TransportError{Op: "server info", Err: err}
	}

	c.logger.Info().
		Str("balancer", body.JbalancerAddr).
		Str("broker", endpoint.URL()).
		Msg("Broker info acquired")
	return endpoint, nil
}

// ListDevices fetches the device list and flattens each discovery packet.
func (c *HTTPClient) ListDevices(ctx context.Context) ([]map[string]string, error) {
	resp, err := c.postJSON(ctx, c.deviceListURL, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &models.TransportError{Op: "device list", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var body models.DeviceListResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &models.TransportError{Op: "decode device list", Err: err}
	}

	discovered := make([]map[string]string, 0, len(body.DeviceList))
	for _, packet := range body.DeviceList {
		info, anomalies := codec.NormalizeDiscovery(packet)
		for _, key := range anomalies {
			c.logger.Warn().Str("key", key).Msg("Dropping non-scalar discovery field")
		}
		discovered = append(discovered, info)
	}

	c.logger.Info().Int("count", len(discovered)).Msg("Device discovery complete")
	return discovered, nil
}

// Shutdown releases idle transport connections. Safe to call more than once.
func (c *HTTPClient) Shutdown() {
	c.http.CloseIdleConnections()
}

func (c *HTTPClient) postJSON(ctx context.Context, url string, payload interface{}) (*http.Response, error) {
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			return nil, &models.TransportError{Op: "encode request", Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, &models.TransportError{Op: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &models.TransportError{Op: "POST " + url, Err: err}
	}
	return resp, nil
}

// requestID generates the random identifier the login payload carries.
func requestID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:16]
}

// CheckAuth validates credentials with a throwaway session, for use by setup
// flows before the bridge is started. An AuthError means bad credentials.
func CheckAuth(ctx context.Context, credentials models.Credentials, logger zerolog.Logger) error {
	client, err := NewHTTPClient(credentials, "", "", "", 30*time.Second, logger)
	if err != nil {
		return err
	}
	defer client.Shutdown()

	_, err = client.Login(ctx)
	return err
}
