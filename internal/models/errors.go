package models

import "fmt"

// AuthError reports rejected credentials or an expired session. It triggers a
// fresh login when raised inside the connection manager and is surfaced
// synchronously when raised during credential validation.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

// TransportError reports an HTTP-level failure of a single cloud call.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ConnectionError reports an MQTT-level failure. Inside the manager it drives
// the reconnect transition; on the publish path it is returned to the caller.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// DecodeError reports a malformed vendor payload. Always logged and dropped,
// never propagated out of the message loop.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode failed: %s", e.Reason)
}

// UnknownDeviceError reports a status message for an identifier that is not
// in the registry.
type UnknownDeviceError struct {
	DeviceID string
}

func (e *UnknownDeviceError) Error() string {
	return fmt.Sprintf("unknown device %q", e.DeviceID)
}
