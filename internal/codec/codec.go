// Package codec converts vendor wire packets to and from the normalized
// attribute model, plus the numeric encodings the cloud uses for brightness,
// color temperature, RGB color and effects.
package codec

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/benmeehan/sengled-bridge/internal/models"
)

// Attribute names used in vendor wire and discovery packets.
const (
	PacketBrightness   = "brightness"
	PacketColorMode    = "colorMode"
	PacketColorTemp    = "colorTemperature"
	PacketEffectStatus = "effectStatus"
	PacketModel        = "typeCode"
	PacketOnline       = "online"
	PacketRGBColor     = "color"
	PacketSWVersion    = "version"
	PacketSwitch       = "switch"

	ValueOff = "0"
	ValueOn  = "1"
)

// Color modes derived from the colorMode attribute.
const (
	ColorModeBrightness       = "brightness"
	ColorModeRGB              = "rgb"
	ColorModeColorTemperature = "colorTemperature"
)

// EffectNone disables whichever effect is currently active.
const EffectNone = "none"

// effectCodes maps the vendor's effectStatus codes to effect names.
var effectCodes = map[string]string{
	"1": "colorCycle",
	"2": "randomColor",
	"3": "rhythm",
	"4": "christmas",
	"5": "halloween",
	"6": "festival",
}

var effectNames = func() map[string]string {
	names := make(map[string]string, len(effectCodes))
	for code, name := range effectCodes {
		names[name] = code
	}
	return names
}()

// NormalizeDiscovery flattens a raw discovery packet into a flat attribute
// map. String-valued top-level fields are copied through; entries of the
// attributeList field are flattened by name. The returned slice lists keys
// that held unexpected non-scalar values, for the caller to log.
func NormalizeDiscovery(packet map[string]interface{}) (map[string]string, []string) {
	result := make(map[string]string, len(packet))
	var anomalies []string

	for key, value := range packet {
		switch key {
		case "attributeList", "deviceAnimations":
			continue
		}
		if s, ok := value.(string); ok {
			result[key] = s
		} else {
			anomalies = append(anomalies, key)
		}
	}

	if list, ok := packet["attributeList"].([]interface{}); ok {
		for _, entry := range list {
			item, ok := entry.(map[string]interface{})
			if !ok {
				anomalies = append(anomalies, "attributeList")
				continue
			}
			name, nameOK := item["name"].(string)
			value, valueOK := item["value"].(string)
			if !nameOK || !valueOK {
				anomalies = append(anomalies, "attributeList")
				continue
			}
			result[name] = value
		}
	}

	return result, anomalies
}

// DecodeStatusPacket parses an inbound status payload, a JSON array of
// {type, value} records, into a flat attribute map. Empty records are
// skipped. A payload that is not an array yields a DecodeError and the
// caller drops the message.
func DecodeStatusPacket(payload []byte) (map[string]string, error) {
	var records []models.StatusRecord
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, &models.DecodeError{Reason: fmt.Sprintf("status payload is not a record array: %v", err)}
	}

	packet := make(map[string]string, len(records))
	for _, record := range records {
		if record.Type == "" {
			continue
		}
		packet[record.Type] = record.Value
	}
	return packet, nil
}

// EncodeBrightness converts a 0-255 brightness to the vendor's percentage string.
func EncodeBrightness(value int) string {
	return strconv.Itoa(int(math.Ceil(float64(value) / 255.0 * 100.0)))
}

// DecodeBrightness converts the vendor's percentage string to 0-255.
func DecodeBrightness(percent string) (int, error) {
	p, err := strconv.Atoi(percent)
	if err != nil {
		return 0, &models.DecodeError{Reason: fmt.Sprintf("bad brightness %q", percent)}
	}
	return int(math.Ceil(float64(p) / 100.0 * 255.0)), nil
}

// EncodeColorTemperature converts mireds to the vendor's percentage string,
// where 100 is the coolest (minMireds) end of the device's range.
func EncodeColorTemperature(mireds, minMireds, maxMireds int) string {
	pct := math.Ceil(float64(maxMireds-mireds) / float64(maxMireds-minMireds) * 100.0)
	return strconv.Itoa(int(pct))
}

// DecodeColorTemperature converts the vendor's percentage string to mireds
// given the device's range.
func DecodeColorTemperature(percent string, minMireds, maxMireds int) (int, error) {
	p, err := strconv.Atoi(percent)
	if err != nil {
		return 0, &models.DecodeError{Reason: fmt.Sprintf("bad color temperature %q", percent)}
	}
	return int(math.Ceil(float64(maxMireds) - (float64(p)/100.0)*float64(maxMireds-minMireds))), nil
}

// EncodeRGB renders an RGB triple in the vendor's colon-joined form.
func EncodeRGB(r, g, b int) string {
	return fmt.Sprintf("%d:%d:%d", r, g, b)
}

// DecodeRGB parses the vendor's colon-joined RGB form.
func DecodeRGB(value string) (r, g, b int, err error) {
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return 0, 0, 0, &models.DecodeError{Reason: fmt.Sprintf("bad RGB value %q", value)}
	}
	channels := make([]int, 3)
	for i, part := range parts {
		channels[i], err = strconv.Atoi(part)
		if err != nil {
			return 0, 0, 0, &models.DecodeError{Reason: fmt.Sprintf("bad RGB value %q", value)}
		}
	}
	return channels[0], channels[1], channels[2], nil
}

// DecodeEffectCode resolves an effectStatus code to an effect name. Returns
// false for "0" (no effect active) and for unknown codes.
func DecodeEffectCode(code string) (string, bool) {
	name, ok := effectCodes[code]
	return name, ok
}

// EncodeEffectName resolves an effect name back to its wire code.
func EncodeEffectName(name string) (string, bool) {
	code, ok := effectNames[name]
	return code, ok
}

// EffectNames lists the supported effects, including the "none" sentinel.
func EffectNames() []string {
	names := make([]string, 0, len(effectCodes)+1)
	for code := 1; code <= len(effectCodes); code++ {
		names = append(names, effectCodes[strconv.Itoa(code)])
	}
	return append(names, EffectNone)
}

// DecodeColorMode maps the colorMode attribute to a color mode name,
// defaulting to brightness for anything unrecognized.
func DecodeColorMode(value string) string {
	switch value {
	case "1":
		return ColorModeRGB
	case "2":
		return ColorModeColorTemperature
	default:
		return ColorModeBrightness
	}
}
