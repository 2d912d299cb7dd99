package connection

import (
	"errors"

	"github.com/eclipse/paho.mqtt.golang/packets"

	"github.com/benmeehan/sengled-bridge/internal/models"
)

// State is the connection manager's lifecycle state.
type State string

const (
	StateDisconnected       State = "disconnected"
	StateAuthenticating     State = "authenticating"
	StateFetchingBrokerInfo State = "fetching_broker_info"
	StateConnecting         State = "connecting"
	StateSubscribing        State = "subscribing"
	StateLive               State = "live"
	StateReconnecting       State = "reconnecting"
	StateShutdown           State = "shutdown"
)

// AuthFailurePredicate decides whether an error means the session is invalid
// and a fresh login is required, as opposed to a plain reconnect. The vendor
// is not consistent about how session expiry surfaces, so the predicate is
// injectable.
type AuthFailurePredicate func(error) bool

// DefaultAuthFailurePredicate treats explicit auth errors and CONNACK
// refusals that name credentials or authorization as session-invalid.
func DefaultAuthFailurePredicate(err error) bool {
	if err == nil {
		return false
	}
	var authErr *models.AuthError
	if errors.As(err, &authErr) {
		return true
	}
	return errors.Is(err, packets.ErrorRefusedBadUsernameOrPassword) ||
		errors.Is(err, packets.ErrorRefusedNotAuthorised) ||
		errors.Is(err, packets.ErrorRefusedIDRejected)
}
