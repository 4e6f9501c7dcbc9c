package joystick

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"
)

func TestCalibrateInversion(t *testing.T) {
	assert := assert.New(t)

	readings := []float64{-1.0, -0.5, -0.1, 0.0, 0.1, 0.5, 1.0}

	for _, r := range readings {
		plain := calibrate(r, AxisConfig{}, 1.0, -1.0)
		inverted := calibrate(r, AxisConfig{Inverted: true}, 1.0, -1.0)

		assert.Equal(-plain, inverted, "reading %f", r)
	}
}

func TestCalibrateRangeLimit(t *testing.T) {
	assert := assert.New(t)

	cfg := AxisConfig{RangeLimited: true}

	for r := -1.0; r <= 1.0; r += 0.05 {
		v := calibrate(r, cfg, 1.0, -1.0)
		assert.GreaterOrEqual(v, 0.0, "reading %f", r)
		assert.LessOrEqual(v, 1.0, "reading %f", r)
	}

	// A centered stick reads exactly zero.
	assert.Zero(calibrate(0.0, cfg, 1.0, -1.0))
}

func TestCalibrateBounds(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(0.8, calibrate(1.0, AxisConfig{}, 0.8, -1.0))
	assert.Equal(-0.6, calibrate(-1.0, AxisConfig{}, 1.0, -0.6))

	// Out-of-range raw readings clamp before anything else.
	assert.Equal(1.0, calibrate(1.7, AxisConfig{}, 1.0, -1.0))
	assert.Equal(-1.0, calibrate(-1.7, AxisConfig{}, 1.0, -1.0))
}

func TestMappingYAML(t *testing.T) {
	assert := assert.New(t)

	for _, mapping := range []Mapping{
		MappingNone,
		MappingYaw,
		MappingPitch,
		MappingRoll,
		MappingThrottle,
	} {
		bs, err := yaml.Marshal(mapping)
		if err != nil {
			assert.Fail(err.Error())
			return
		}

		var decoded Mapping
		if err := yaml.Unmarshal(bs, &decoded); err != nil {
			assert.Fail(err.Error())
			return
		}

		assert.Equal(mapping, decoded)
	}

	var invalid Mapping
	err := yaml.Unmarshal([]byte("boost"), &invalid)
	assert.Error(err)
}

func TestControlFrame(t *testing.T) {
	assert := assert.New(t)

	update := ControlUpdate{
		Roll:     0.5,
		Pitch:    -0.5,
		Yaw:      0.0,
		Throttle: 1.0,
		HatX:     -1,
		HatY:     1,
		Buttons:  0b101,
	}

	bs, err := update.MarshalBinary()
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Len(bs, controlFrameSize)

	var decoded ControlUpdate
	if err := decoded.UnmarshalBinary(bs); err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Equal(update, decoded)

	var short ControlUpdate
	assert.Error(short.UnmarshalBinary(bs[:10]))
}

func TestControlFrameUndefinedChannels(t *testing.T) {
	assert := assert.New(t)

	update := ControlUpdate{
		Roll:     0.25,
		Pitch:    Undefined(),
		Yaw:      Undefined(),
		Throttle: 0.75,
	}

	bs, err := update.MarshalBinary()
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	var decoded ControlUpdate
	if err := decoded.UnmarshalBinary(bs); err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.True(IsUndefined(decoded.Pitch))
	assert.True(IsUndefined(decoded.Yaw))
	assert.InDelta(0.25, decoded.Roll, 1e-6)
	assert.InDelta(0.75, decoded.Throttle, 1e-6)
}

func TestControlUpdateJSON(t *testing.T) {
	assert := assert.New(t)

	update := ControlUpdate{
		Roll:     0.5,
		Pitch:    -0.5,
		Yaw:      Undefined(),
		Throttle: 1.0,
		HatX:     1,
		Buttons:  1,
	}

	bs, err := json.Marshal(&update)
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	var raw map[string]any
	if err := json.Unmarshal(bs, &raw); err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Nil(raw["yaw"])
	assert.Equal(0.5, raw["roll"])

	var decoded ControlUpdate
	if err := json.Unmarshal(bs, &decoded); err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.True(IsUndefined(decoded.Yaw))
	assert.Equal(update.Roll, decoded.Roll)
	assert.Equal(update.Buttons, decoded.Buttons)
}
