package models

import (
	"fmt"
	"net/url"
	"strconv"
)

// Credentials holds the cloud account login used for authentication and
// re-authentication. Owned by the caller and never mutated.
type Credentials struct {
	Username string
	Password string
}

// Session represents a live cloud session. A session is only valid after a
// successful login and is replaced wholesale on re-authentication.
type Session struct {
	ID string
}

// ClientID returns the MQTT client identifier the broker expects for this session.
func (s *Session) ClientID() string {
	return s.ID + "@lifeApp"
}

// BrokerEndpoint is a parsed MQTT-over-websocket broker address resolved from
// the cloud's server-info call.
type BrokerEndpoint struct {
	Scheme string
	Host   string
	Port   int
	Path   string
}

// ParseBrokerEndpoint parses a broker URL as returned by the server-info endpoint.
func ParseBrokerEndpoint(raw string) (*BrokerEndpoint, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid broker URL %q: %w", raw, err)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("broker URL %q has no host", raw)
	}

	port := 443
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid broker port in %q: %w", raw, err)
		}
	}

	return &BrokerEndpoint{
		Scheme: u.Scheme,
		Host:   u.Hostname(),
		Port:   port,
		Path:   u.Path,
	}, nil
}

// URL renders the endpoint back into the form the MQTT client dials.
func (b *BrokerEndpoint) URL() string {
	return fmt.Sprintf("%s://%s:%d%s", b.Scheme, b.Host, b.Port, b.Path)
}
