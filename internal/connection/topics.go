package connection

import (
	"fmt"
	"strings"
)

const topicPrefix = "wifielement"

// StatusTopic is the per-device topic carrying inbound state updates.
// Always derived from the identifier, never stored.
func StatusTopic(deviceID string) string {
	return fmt.Sprintf("%s/%s/status", topicPrefix, deviceID)
}

// UpdateTopic is the per-device topic commands are published to.
func UpdateTopic(deviceID string) string {
	return fmt.Sprintf("%s/%s/update", topicPrefix, deviceID)
}

// parseTopic splits a wifielement topic into device identifier and kind
// ("status" or "update"). ok is false for any other topic shape.
func parseTopic(topic string) (deviceID, kind string, ok bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != topicPrefix || parts[1] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}
