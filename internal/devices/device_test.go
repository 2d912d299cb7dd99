package devices_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benmeehan/sengled-bridge/internal/devices"
)

func colorBulbInfo() map[string]string {
	return map[string]string{
		"deviceUuid":        "aa:bb:cc",
		"name":              "Office Lamp",
		"typeCode":          "W21-N13",
		"version":           "V1.0.2",
		"supportAttributes": "brightness,color,colorTemperature",
	}
}

func TestNewRequiresIdentifier(t *testing.T) {
	_, err := devices.New(map[string]string{"name": "Nameless"}, 154, 400)
	assert.Error(t, err)
}

func TestCapabilitiesFromSupportAttributes(t *testing.T) {
	d, err := devices.New(colorBulbInfo(), 154, 400)
	require.NoError(t, err)

	assert.True(t, d.HasCapability(devices.CapabilityBrightness))
	assert.True(t, d.HasCapability(devices.CapabilityColor))
	assert.True(t, d.HasCapability(devices.CapabilityColorTemperature))
	assert.Equal(t, []devices.Capability{
		devices.CapabilityBrightness,
		devices.CapabilityColor,
		devices.CapabilityColorTemperature,
	}, d.Capabilities())
}

func TestCapabilitiesFromTypeCode(t *testing.T) {
	d, err := devices.New(map[string]string{
		"deviceUuid": "dd:ee",
		"typeCode":   "W21-N11",
	}, 154, 400)
	require.NoError(t, err)

	assert.True(t, d.HasCapability(devices.CapabilityBrightness))
	assert.False(t, d.HasCapability(devices.CapabilityColor))
}

func TestUnknownTypeCodeDefaultsToBrightness(t *testing.T) {
	d, err := devices.New(map[string]string{
		"deviceUuid": "ff:00",
		"typeCode":   "W99-X01",
	}, 154, 400)
	require.NoError(t, err)

	assert.Equal(t, []devices.Capability{devices.CapabilityBrightness}, d.Capabilities())
}

// TestAccessorsUnset checks that accessors report absence instead of zero
// values when an attribute has never been seen.
func TestAccessorsUnset(t *testing.T) {
	d, err := devices.New(map[string]string{"deviceUuid": "aa:bb:cc"}, 154, 400)
	require.NoError(t, err)

	_, ok := d.IsOn()
	assert.False(t, ok)
	_, ok = d.IsAvailable()
	assert.False(t, ok)
	_, ok = d.Brightness()
	assert.False(t, ok)
	_, _, _, ok = d.RGBColor()
	assert.False(t, ok)
	_, ok = d.ColorTemperature()
	assert.False(t, ok)
	_, ok = d.ColorMode()
	assert.False(t, ok)
	_, ok = d.Effect()
	assert.False(t, ok)
}

func TestApplyUpdateDrivesAccessors(t *testing.T) {
	d, err := devices.New(colorBulbInfo(), 154, 400)
	require.NoError(t, err)

	d.ApplyUpdate(map[string]string{
		"switch":           "1",
		"online":           "1",
		"brightness":       "100",
		"color":            "255:128:0",
		"colorTemperature": "100",
		"colorMode":        "1",
		"effectStatus":     "4",
	})

	on, ok := d.IsOn()
	assert.True(t, ok)
	assert.True(t, on)

	available, ok := d.IsAvailable()
	assert.True(t, ok)
	assert.True(t, available)

	brightness, ok := d.Brightness()
	assert.True(t, ok)
	assert.Equal(t, 255, brightness)

	r, g, b, ok := d.RGBColor()
	assert.True(t, ok)
	assert.Equal(t, [3]int{255, 128, 0}, [3]int{r, g, b})

	mireds, ok := d.ColorTemperature()
	assert.True(t, ok)
	assert.Equal(t, 154, mireds)

	mode, ok := d.ColorMode()
	assert.True(t, ok)
	assert.Equal(t, "rgb", mode)

	effect, ok := d.Effect()
	assert.True(t, ok)
	assert.Equal(t, "christmas", effect)
}

func TestApplyUpdateKeepsUnknownAttributes(t *testing.T) {
	d, err := devices.New(colorBulbInfo(), 154, 400)
	require.NoError(t, err)

	d.ApplyUpdate(map[string]string{"consumptionTime": "12345"})

	value, ok := d.Attribute("consumptionTime")
	assert.True(t, ok)
	assert.Equal(t, "12345", value)
}

func TestDeviceMetadata(t *testing.T) {
	d, err := devices.New(colorBulbInfo(), 154, 400)
	require.NoError(t, err)

	assert.Equal(t, "aa:bb:cc", d.ID())
	assert.Equal(t, "Office Lamp", d.Name())
	assert.Equal(t, "W21-N13", d.Model())
	assert.Equal(t, "V1.0.2", d.SWVersion())
	assert.Equal(t, 154, d.MinMireds())
	assert.Equal(t, 400, d.MaxMireds())
	assert.Contains(t, d.EffectNames(), "none")
}

func TestEffectNamesEmptyWithoutColor(t *testing.T) {
	d, err := devices.New(map[string]string{
		"deviceUuid": "dd:ee",
		"typeCode":   "W21-N11",
	}, 154, 400)
	require.NoError(t, err)

	assert.Empty(t, d.EffectNames())
}
