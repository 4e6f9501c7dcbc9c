package joystick

import (
	"errors"

	"github.com/jupiterrider/purego-sdl3/sdl"
)

// Raw axis range reported by SDL joysticks.
const (
	sdlAxisMin = -32768.0
	sdlAxisMax = 32767.0
)

const (
	hatUp    uint8 = 0x01
	hatRight uint8 = 0x02
	hatDown  uint8 = 0x04
	hatLeft  uint8 = 0x08
)

// SDLDriver reads joysticks through the SDL3 joystick subsystem. SDL is
// not thread-safe; all calls should come from the goroutine that owns the
// polling loop, or be serialized by the caller.
type SDLDriver struct{}

func NewSDLDriver() (*SDLDriver, error) {
	if !sdl.Init(sdl.InitJoystick) {
		return nil, errors.New(sdl.GetError())
	}

	return &SDLDriver{}, nil
}

func (d *SDLDriver) Devices() ([]DeviceInfo, error) {
	d.pump()

	ids := sdl.GetJoysticks()

	devices := make([]DeviceInfo, 0, len(ids))
	for i, id := range ids {
		js := sdl.OpenJoystick(id)
		if js == nil {
			continue
		}

		devices = append(devices, DeviceInfo{
			ID:      i,
			Name:    sdl.GetJoystickName(js),
			Axes:    int(sdl.GetNumJoystickAxes(js)),
			Buttons: int(sdl.GetNumJoystickButtons(js)),
		})

		sdl.CloseJoystick(js)
	}

	return devices, nil
}

func (d *SDLDriver) Open(id int) (Device, error) {
	d.pump()

	ids := sdl.GetJoysticks()
	if id < 0 || id >= len(ids) {
		return nil, errors.New("device not found")
	}

	js := sdl.OpenJoystick(ids[id])
	if js == nil {
		return nil, errors.New(sdl.GetError())
	}

	info := DeviceInfo{
		ID:      id,
		Name:    sdl.GetJoystickName(js),
		Axes:    int(sdl.GetNumJoystickAxes(js)),
		Buttons: int(sdl.GetNumJoystickButtons(js)),
	}

	return &sdlDevice{
		driver:   d,
		joystick: js,
		info:     info,
	}, nil
}

func (d *SDLDriver) Close() {
	sdl.Quit()
}

// pump drains the SDL event queue so joystick state reflects the hardware.
func (d *SDLDriver) pump() {
	var event sdl.Event
	for sdl.PollEvent(&event) {
	}
}

type sdlDevice struct {
	driver   *SDLDriver
	joystick *sdl.Joystick
	info     DeviceInfo
}

func (dev *sdlDevice) Info() DeviceInfo {
	return dev.info
}

func (dev *sdlDevice) Read() (State, error) {
	dev.driver.pump()

	if !sdl.JoystickConnected(dev.joystick) {
		return State{}, errors.New("device disconnected")
	}

	state := State{
		Axes: make([]float64, dev.info.Axes),
	}

	for i := 0; i < dev.info.Axes; i++ {
		raw := sdl.GetJoystickAxis(dev.joystick, int32(i))
		state.Axes[i] = normalizeAxis(raw)
	}

	buttons := dev.info.Buttons
	if buttons > MaxButtons {
		buttons = MaxButtons
	}

	for i := 0; i < buttons; i++ {
		if sdl.GetJoystickButton(dev.joystick, int32(i)) {
			state.Buttons |= 1 << i
		}
	}

	if sdl.GetNumJoystickHats(dev.joystick) > 0 {
		hat := sdl.GetJoystickHat(dev.joystick, 0)

		if hat&hatRight != 0 {
			state.HatX = 1
		} else if hat&hatLeft != 0 {
			state.HatX = -1
		}

		if hat&hatUp != 0 {
			state.HatY = 1
		} else if hat&hatDown != 0 {
			state.HatY = -1
		}
	}

	return state, nil
}

func (dev *sdlDevice) Close() {
	sdl.CloseJoystick(dev.joystick)
}

// normalizeAxis scales a raw reading into [-1, 1] using the range SDL
// reports for every joystick axis.
func normalizeAxis(raw int16) float64 {
	return 2.0*(float64(raw)-sdlAxisMin)/(sdlAxisMax-sdlAxisMin) - 1.0
}
