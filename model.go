package joystick

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"math"

	"gopkg.in/yaml.v3"
)

// MaxAxes bounds the per-axis configuration arrays. Indices beyond the
// active device's axis count are unused.
const MaxAxes = 16

// MaxButtons is the number of buttons representable in the button bitfield.
const MaxButtons = 16

// Mapping assigns a physical axis to one of the vehicle control channels.
type Mapping int

const (
	MappingNone Mapping = iota
	MappingYaw
	MappingPitch
	MappingRoll
	MappingThrottle
)

func ParseMapping(mapping string) (Mapping, error) {
	switch mapping {
	case "none":
		return MappingNone, nil
	case "yaw":
		return MappingYaw, nil
	case "pitch":
		return MappingPitch, nil
	case "roll":
		return MappingRoll, nil
	case "throttle":
		return MappingThrottle, nil
	default:
		return -1, errors.New("mapping not supported")
	}
}

func (mapping *Mapping) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}

	m, err := ParseMapping(raw)
	if err != nil {
		return err
	}

	*mapping = m

	return nil
}

func (mapping Mapping) MarshalYAML() (any, error) {
	return mapping.String(), nil
}

func (mapping Mapping) String() string {
	switch mapping {
	case MappingNone:
		return "none"
	case MappingYaw:
		return "yaw"
	case MappingPitch:
		return "pitch"
	case MappingRoll:
		return "roll"
	case MappingThrottle:
		return "throttle"
	default:
		return "unknown"
	}
}

// AxisConfig is the persisted per-axis configuration.
type AxisConfig struct {
	Mapping      Mapping `yaml:"mapping"`
	Inverted     bool    `yaml:"inverted"`
	RangeLimited bool    `yaml:"rangeLimited"`
}

// DeviceInfo identifies one physical joystick. Enumerated when the device
// is attached and immutable for the lifetime of the attachment.
type DeviceInfo struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Axes    int    `json:"axes"`
	Buttons int    `json:"buttons"`
}

// State is one raw sample of a device: normalized axis readings in
// [-1, 1], a bitfield of up to 16 button states, and the hat direction
// with each component in {-1, 0, 1}.
type State struct {
	Axes    []float64
	Buttons uint16
	HatX    int
	HatY    int
}

// Undefined is the value reported for a control channel with no physical
// axis assigned, and for out-of-range axis queries.
func Undefined() float64 {
	return math.NaN()
}

func IsUndefined(value float64) bool {
	return math.IsNaN(value)
}

// changeEpsilon is the minimum axis movement considered a change.
const changeEpsilon = 0.01

// calibrate turns a normalized raw reading into the reported axis value.
// Inversion negates the reading. A range-limited axis keeps only the
// positive half: negative readings clamp to 0, so the output lies in
// [0, 1] and a centered stick reads exactly 0. The calibration bounds
// clamp the final value.
func calibrate(raw float64, cfg AxisConfig, positive, negative float64) float64 {
	v := raw
	if v > 1.0 {
		v = 1.0
	}
	if v < -1.0 {
		v = -1.0
	}

	if cfg.Inverted {
		v = -v
	}

	if cfg.RangeLimited && v < 0 {
		v = 0
	}

	if v > positive {
		v = positive
	}
	if v < negative {
		v = negative
	}

	return v
}

// ControlUpdate carries one cycle's mapped control values. Channels with
// no axis assigned are NaN.
type ControlUpdate struct {
	Roll     float64
	Pitch    float64
	Yaw      float64
	Throttle float64
	HatX     int
	HatY     int
	Buttons  uint16
}

// controlFrameSize is the wire size of a control update on a peer data
// channel: four float32 channels, two hat bytes, and the button bitfield.
const controlFrameSize = 20

func (u ControlUpdate) MarshalBinary() ([]byte, error) {
	buf := make([]byte, controlFrameSize)

	binary.BigEndian.PutUint32(buf[0:4], math.Float32bits(float32(u.Roll)))
	binary.BigEndian.PutUint32(buf[4:8], math.Float32bits(float32(u.Pitch)))
	binary.BigEndian.PutUint32(buf[8:12], math.Float32bits(float32(u.Yaw)))
	binary.BigEndian.PutUint32(buf[12:16], math.Float32bits(float32(u.Throttle)))

	buf[16] = byte(int8(u.HatX))
	buf[17] = byte(int8(u.HatY))

	binary.BigEndian.PutUint16(buf[18:20], u.Buttons)

	return buf, nil
}

func (u *ControlUpdate) UnmarshalBinary(data []byte) error {
	if len(data) != controlFrameSize {
		return errors.New("invalid control frame")
	}

	u.Roll = float64(math.Float32frombits(binary.BigEndian.Uint32(data[0:4])))
	u.Pitch = float64(math.Float32frombits(binary.BigEndian.Uint32(data[4:8])))
	u.Yaw = float64(math.Float32frombits(binary.BigEndian.Uint32(data[8:12])))
	u.Throttle = float64(math.Float32frombits(binary.BigEndian.Uint32(data[12:16])))

	u.HatX = int(int8(data[16]))
	u.HatY = int(int8(data[17]))

	u.Buttons = binary.BigEndian.Uint16(data[18:20])

	return nil
}

// MarshalJSON reports unassigned channels as null, since NaN has no JSON
// representation.
func (u ControlUpdate) MarshalJSON() ([]byte, error) {
	raw := struct {
		Roll     *float64 `json:"roll"`
		Pitch    *float64 `json:"pitch"`
		Yaw      *float64 `json:"yaw"`
		Throttle *float64 `json:"throttle"`
		HatX     int      `json:"hatX"`
		HatY     int      `json:"hatY"`
		Buttons  uint16   `json:"buttons"`
	}{
		Roll:     jsonValue(u.Roll),
		Pitch:    jsonValue(u.Pitch),
		Yaw:      jsonValue(u.Yaw),
		Throttle: jsonValue(u.Throttle),
		HatX:     u.HatX,
		HatY:     u.HatY,
		Buttons:  u.Buttons,
	}

	return json.Marshal(&raw)
}

func (u *ControlUpdate) UnmarshalJSON(data []byte) error {
	var raw struct {
		Roll     *float64 `json:"roll"`
		Pitch    *float64 `json:"pitch"`
		Yaw      *float64 `json:"yaw"`
		Throttle *float64 `json:"throttle"`
		HatX     int      `json:"hatX"`
		HatY     int      `json:"hatY"`
		Buttons  uint16   `json:"buttons"`
	}

	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	u.Roll = floatValue(raw.Roll)
	u.Pitch = floatValue(raw.Pitch)
	u.Yaw = floatValue(raw.Yaw)
	u.Throttle = floatValue(raw.Throttle)
	u.HatX = raw.HatX
	u.HatY = raw.HatY
	u.Buttons = raw.Buttons

	return nil
}

func jsonValue(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

func floatValue(v *float64) float64 {
	if v == nil {
		return Undefined()
	}
	return *v
}

// Listener receives poll-loop notifications. Callbacks run synchronously
// on the polling goroutine, in registration order, and must not block.
type Listener interface {
	ControlUpdated(update ControlUpdate)
	AxisValueChanged(axis int, value float64)
	ButtonPressed(button int)
	ButtonReleased(button int)
	HatChanged(x, y int)
}

// ControlSink consumes forwarded control values, typically the active
// vehicle abstraction. The service tolerates a nil sink.
type ControlSink interface {
	SendControls(update ControlUpdate) error
}
