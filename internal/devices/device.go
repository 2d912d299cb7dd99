// Package devices holds the normalized device model and the registry the
// connection manager routes inbound updates through.
package devices

import (
	"fmt"
	"strings"
	"sync"

	"github.com/benmeehan/sengled-bridge/internal/codec"
)

// Capability describes one feature a device supports. Color-capable bulbs
// carry the color and colorTemperature capabilities on top of brightness.
type Capability string

const (
	CapabilityBrightness       Capability = "brightness"
	CapabilityColor            Capability = "color"
	CapabilityColorTemperature Capability = "colorTemperature"
)

// Default mired range. The cloud never reports the range, so these follow
// the known bulb models (2700K-6500K).
const (
	DefaultMinMireds = 154
	DefaultMaxMireds = 400
)

// typeCapabilities maps known model type codes to their capability sets,
// used when a discovery packet carries no supportAttributes field.
var typeCapabilities = map[string][]Capability{
	"W21-N11": {CapabilityBrightness},
	"W21-N13": {CapabilityBrightness, CapabilityColor, CapabilityColorTemperature},
}

// Device is the normalized, mutable state of one smart light. All state
// lives in the raw attribute map; typed accessors decode on read and report
// ok=false when the backing attribute is absent. The identifier never
// changes after creation.
type Device struct {
	id           string
	capabilities map[Capability]struct{}
	minMireds    int
	maxMireds    int

	mu    sync.RWMutex
	attrs map[string]string
}

// New builds a Device from a normalized discovery packet. The packet must
// carry a deviceUuid. Capabilities come from the supportAttributes field
// when present, otherwise from the model type code, defaulting to a plain
// brightness-only device.
func New(info map[string]string, minMireds, maxMireds int) (*Device, error) {
	id := info["deviceUuid"]
	if id == "" {
		return nil, fmt.Errorf("discovery packet has no deviceUuid")
	}

	d := &Device{
		id:           id,
		capabilities: make(map[Capability]struct{}),
		minMireds:    minMireds,
		maxMireds:    maxMireds,
		attrs:        make(map[string]string, len(info)),
	}
	for key, value := range info {
		d.attrs[key] = value
	}

	if support := info["supportAttributes"]; support != "" {
		for _, name := range strings.Split(support, ",") {
			switch Capability(strings.TrimSpace(name)) {
			case CapabilityBrightness, CapabilityColor, CapabilityColorTemperature:
				d.capabilities[Capability(strings.TrimSpace(name))] = struct{}{}
			}
		}
	} else if caps, ok := typeCapabilities[info[codec.PacketModel]]; ok {
		for _, c := range caps {
			d.capabilities[c] = struct{}{}
		}
	}
	if len(d.capabilities) == 0 {
		d.capabilities[CapabilityBrightness] = struct{}{}
	}

	return d, nil
}

// ID returns the stable device identifier.
func (d *Device) ID() string { return d.id }

// HasCapability reports whether the device supports the given capability.
func (d *Device) HasCapability(c Capability) bool {
	_, ok := d.capabilities[c]
	return ok
}

// Capabilities returns the device's capability set.
func (d *Device) Capabilities() []Capability {
	caps := make([]Capability, 0, len(d.capabilities))
	for _, c := range []Capability{CapabilityBrightness, CapabilityColor, CapabilityColorTemperature} {
		if _, ok := d.capabilities[c]; ok {
			caps = append(caps, c)
		}
	}
	return caps
}

// MinMireds returns the cool end of the color temperature range.
func (d *Device) MinMireds() int { return d.minMireds }

// MaxMireds returns the warm end of the color temperature range.
func (d *Device) MaxMireds() int { return d.maxMireds }

// ApplyUpdate merges decoded attribute values into the device state. Unknown
// keys are stored as-is so later firmware additions are not lost; they just
// have no derived accessor.
func (d *Device) ApplyUpdate(packet map[string]string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key, value := range packet {
		d.attrs[key] = value
	}
}

// Attribute returns the raw value of one attribute.
func (d *Device) Attribute(name string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	value, ok := d.attrs[name]
	return value, ok
}

// Name returns the display name from discovery.
func (d *Device) Name() string {
	value, _ := d.Attribute("name")
	return value
}

// Model returns the vendor type code.
func (d *Device) Model() string {
	value, _ := d.Attribute(codec.PacketModel)
	return value
}

// SWVersion returns the reported firmware version.
func (d *Device) SWVersion() string {
	value, _ := d.Attribute(codec.PacketSWVersion)
	return value
}

// IsAvailable reports whether the cloud considers the device online.
func (d *Device) IsAvailable() (available, ok bool) {
	value, ok := d.Attribute(codec.PacketOnline)
	return value == codec.ValueOn, ok
}

// IsOn reports the power state.
func (d *Device) IsOn() (on, ok bool) {
	value, ok := d.Attribute(codec.PacketSwitch)
	return value == codec.ValueOn, ok
}

// Brightness returns the brightness on a 0-255 scale.
func (d *Device) Brightness() (int, bool) {
	value, ok := d.Attribute(codec.PacketBrightness)
	if !ok {
		return 0, false
	}
	brightness, err := codec.DecodeBrightness(value)
	if err != nil {
		return 0, false
	}
	return brightness, true
}

// RGBColor returns the current color. Only meaningful on devices with the
// color capability.
func (d *Device) RGBColor() (r, g, b int, ok bool) {
	value, ok := d.Attribute(codec.PacketRGBColor)
	if !ok {
		return 0, 0, 0, false
	}
	r, g, b, err := codec.DecodeRGB(value)
	if err != nil {
		return 0, 0, 0, false
	}
	return r, g, b, true
}

// ColorTemperature returns the current color temperature in mireds. Only
// meaningful on devices with the colorTemperature capability.
func (d *Device) ColorTemperature() (int, bool) {
	value, ok := d.Attribute(codec.PacketColorTemp)
	if !ok || value == "" {
		return 0, false
	}
	mireds, err := codec.DecodeColorTemperature(value, d.minMireds, d.maxMireds)
	if err != nil {
		return 0, false
	}
	return mireds, true
}

// ColorMode returns which color channel currently drives the device.
func (d *Device) ColorMode() (string, bool) {
	value, ok := d.Attribute(codec.PacketColorMode)
	if !ok {
		return "", false
	}
	return codec.DecodeColorMode(value), true
}

// Effect returns the name of the active effect, if any.
func (d *Device) Effect() (string, bool) {
	value, ok := d.Attribute(codec.PacketEffectStatus)
	if !ok {
		return "", false
	}
	return codec.DecodeEffectCode(value)
}

// EffectNames lists the effects a color-capable device accepts.
func (d *Device) EffectNames() []string {
	if !d.HasCapability(CapabilityColor) {
		return nil
	}
	return codec.EffectNames()
}
