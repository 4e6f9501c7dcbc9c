package joystick

import (
	"math"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Service interface {
	Start() error
	Shutdown()

	Devices() []DeviceInfo
	ActiveDevice() (DeviceInfo, bool)

	SetActiveJoystick(id int)
	SetActiveUAS(sink ControlSink)

	SetAxisMapping(axis int, mapping Mapping)
	SetAxisInversion(axis int, inverted bool)
	SetAxisRangeLimit(axis int, limited bool)

	MappingForAxis(axis int) Mapping
	AxisForMapping(mapping Mapping) int
	CurrentValueForAxis(axis int) float64
	InvertedForAxis(axis int) bool
	RangeLimitForAxis(axis int) bool

	LoadSettings()
	StoreSettings()

	AddListener(l Listener)
}

type ServiceMiddleware func(next Service) Service

func NewService(cfg *Config, driver Driver, settings *FileSettings) Service {
	svc := &service{
		log: zap.L().With(
			zap.String("service", "joystick"),
		),
		driver:   driver,
		settings: settings,
		interval: cfg.Interval(),
	}

	for i := range svc.calibrationPositive {
		svc.calibrationPositive[i] = 1.0
		svc.calibrationNegative[i] = -1.0
	}

	return svc
}

type service struct {
	log      *zap.Logger
	driver   Driver
	settings *FileSettings
	interval time.Duration

	device              Device
	info                DeviceInfo
	axes                [MaxAxes]AxisConfig
	calibrationPositive [MaxAxes]float64
	calibrationNegative [MaxAxes]float64
	sink                ControlSink
	listeners           []Listener
	last                State

	running bool
	stop    chan struct{}
	done    chan struct{}

	sync.Mutex
}

func (svc *service) Start() error {
	svc.Lock()
	defer svc.Unlock()

	if svc.running {
		return nil
	}

	svc.running = true
	svc.stop = make(chan struct{})
	svc.done = make(chan struct{})

	go svc.run(svc.stop, svc.done)

	return nil
}

func (svc *service) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	// The SDL joystick calls below want a stable thread.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	svc.log.Info("polling started",
		zap.Duration("interval", svc.interval))

	ticker := time.NewTicker(svc.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			svc.log.Info("polling stopped")
			return

		case <-ticker.C:
			svc.poll()
		}
	}
}

// Shutdown stops the polling loop and blocks until it has exited. No
// notification is emitted after Shutdown returns.
func (svc *service) Shutdown() {
	svc.Lock()

	if svc.running {
		svc.running = false
		stop, done := svc.stop, svc.done
		svc.Unlock()

		close(stop)
		<-done

		svc.Lock()
	}

	defer svc.Unlock()

	if svc.device != nil {
		svc.device.Close()
		svc.device = nil
		svc.info = DeviceInfo{}
		svc.last = State{}
	}
}

// poll runs one cycle: read, calibrate, diff against the previous
// snapshot, notify, forward. The lock is never held across the device
// read or the listener callbacks.
func (svc *service) poll() {
	svc.Lock()
	dev := svc.device
	svc.Unlock()

	if dev == nil {
		return
	}

	raw, err := dev.Read()
	if err != nil {
		svc.log.Debug("sample skipped", zap.Error(err))
		return
	}

	svc.Lock()

	// The device may have been switched while the read was in flight.
	// The resync for the new device already went out; a sample from the
	// old one must not override it.
	if svc.device != dev {
		svc.Unlock()
		return
	}

	cfg := svc.axes
	positive := svc.calibrationPositive
	negative := svc.calibrationNegative
	info := svc.info
	prev := svc.last
	sink := svc.sink
	listeners := append([]Listener(nil), svc.listeners...)

	calibrated := calibrateAll(raw.Axes, cfg, positive, negative)

	svc.last = State{
		Axes:    calibrated,
		Buttons: raw.Buttons,
		HatX:    raw.HatX,
		HatY:    raw.HatY,
	}

	svc.Unlock()

	var events []func(Listener)

	for i := range calibrated {
		if i < len(prev.Axes) && math.Abs(calibrated[i]-prev.Axes[i]) <= changeEpsilon {
			continue
		}

		axis, value := i, calibrated[i]
		events = append(events, func(l Listener) {
			l.AxisValueChanged(axis, value)
		})
	}

	changed := raw.Buttons ^ prev.Buttons
	for i := 0; i < MaxButtons; i++ {
		bit := uint16(1) << i
		if changed&bit == 0 {
			continue
		}

		button := i
		if raw.Buttons&bit != 0 {
			events = append(events, func(l Listener) {
				l.ButtonPressed(button)
			})
		} else {
			events = append(events, func(l Listener) {
				l.ButtonReleased(button)
			})
		}
	}

	if raw.HatX != prev.HatX || raw.HatY != prev.HatY {
		x, y := raw.HatX, raw.HatY
		events = append(events, func(l Listener) {
			l.HatChanged(x, y)
		})
	}

	update := controlUpdate(cfg, info.Axes, calibrated, raw)

	for _, event := range events {
		for _, l := range listeners {
			event(l)
		}
	}

	for _, l := range listeners {
		l.ControlUpdated(update)
	}

	if sink != nil {
		if err := sink.SendControls(update); err != nil {
			svc.log.Warn("forward failed", zap.Error(err))
		}
	}
}

func calibrateAll(axes []float64, cfg [MaxAxes]AxisConfig, positive, negative [MaxAxes]float64) []float64 {
	n := len(axes)
	if n > MaxAxes {
		n = MaxAxes
	}

	calibrated := make([]float64, n)
	for i := 0; i < n; i++ {
		calibrated[i] = calibrate(axes[i], cfg[i], positive[i], negative[i])
	}

	return calibrated
}

func controlUpdate(cfg [MaxAxes]AxisConfig, axes int, calibrated []float64, raw State) ControlUpdate {
	return ControlUpdate{
		Roll:     channelValue(cfg, axes, calibrated, MappingRoll),
		Pitch:    channelValue(cfg, axes, calibrated, MappingPitch),
		Yaw:      channelValue(cfg, axes, calibrated, MappingYaw),
		Throttle: channelValue(cfg, axes, calibrated, MappingThrottle),
		HatX:     raw.HatX,
		HatY:     raw.HatY,
		Buttons:  raw.Buttons,
	}
}

func channelValue(cfg [MaxAxes]AxisConfig, axes int, calibrated []float64, mapping Mapping) float64 {
	for i := 0; i < axes && i < len(calibrated); i++ {
		if cfg[i].Mapping == mapping {
			return calibrated[i]
		}
	}

	return Undefined()
}

func (svc *service) Devices() []DeviceInfo {
	devices, err := svc.driver.Devices()
	if err != nil {
		svc.log.Error("enumeration failed", zap.Error(err))
		return nil
	}

	return devices
}

func (svc *service) ActiveDevice() (DeviceInfo, bool) {
	svc.Lock()
	defer svc.Unlock()

	return svc.info, svc.device != nil
}

// SetActiveJoystick switches to the device with the given enumeration id.
// An unknown id leaves the prior state untouched. On success the device
// descriptor, calibration, and snapshot are replaced atomically and a
// full-state update goes out before any incremental one.
func (svc *service) SetActiveJoystick(id int) {
	log := svc.log.With(
		zap.String("action", "set_active_joystick"),
		zap.Int("id", id),
	)

	devices, err := svc.driver.Devices()
	if err != nil {
		log.Error(err.Error())
		return
	}

	if id < 0 || id >= len(devices) {
		log.Warn("device not found")
		return
	}

	dev, err := svc.driver.Open(id)
	if err != nil {
		log.Error(err.Error())
		return
	}

	info := dev.Info()
	if info.Axes > MaxAxes {
		info.Axes = MaxAxes
	}
	if info.Buttons > MaxButtons {
		info.Buttons = MaxButtons
	}

	raw, err := dev.Read()
	if err != nil {
		raw = State{Axes: make([]float64, info.Axes)}
	}

	svc.Lock()

	if svc.device != nil {
		svc.device.Close()
	}

	svc.device = dev
	svc.info = info

	for i := range svc.axes {
		svc.axes[i] = AxisConfig{}
		svc.calibrationPositive[i] = 1.0
		svc.calibrationNegative[i] = -1.0
	}

	if svc.settings != nil {
		if stored, ok := svc.settings.Load(info.Name); ok {
			for i := 0; i < len(stored) && i < MaxAxes; i++ {
				svc.axes[i] = stored[i]
			}
		}
	}

	calibrated := calibrateAll(raw.Axes, svc.axes, svc.calibrationPositive, svc.calibrationNegative)
	svc.last = State{
		Axes:    calibrated,
		Buttons: raw.Buttons,
		HatX:    raw.HatX,
		HatY:    raw.HatY,
	}

	cfg := svc.axes
	sink := svc.sink
	listeners := append([]Listener(nil), svc.listeners...)

	svc.Unlock()

	log.Info("device selected",
		zap.String("device", info.Name),
		zap.Int("axes", info.Axes),
		zap.Int("buttons", info.Buttons))

	// Full resync so observers drop any state from the previous device.
	for _, l := range listeners {
		for i, value := range calibrated {
			l.AxisValueChanged(i, value)
		}

		for i := 0; i < info.Buttons; i++ {
			if raw.Buttons&(1<<i) != 0 {
				l.ButtonPressed(i)
			} else {
				l.ButtonReleased(i)
			}
		}

		l.HatChanged(raw.HatX, raw.HatY)
	}

	update := controlUpdate(cfg, info.Axes, calibrated, raw)
	for _, l := range listeners {
		l.ControlUpdated(update)
	}

	if sink != nil {
		if err := sink.SendControls(update); err != nil {
			log.Warn("forward failed", zap.Error(err))
		}
	}
}

// SetActiveUAS replaces the control-forwarding target. A nil sink
// disables forwarding without stopping the poll loop.
func (svc *service) SetActiveUAS(sink ControlSink) {
	svc.Lock()
	defer svc.Unlock()

	svc.sink = sink
}

// SetAxisMapping assigns a control channel to a physical axis. At most
// one axis holds a given channel: any other axis holding it is demoted
// to MappingNone.
func (svc *service) SetAxisMapping(axis int, mapping Mapping) {
	if axis < 0 || axis >= MaxAxes {
		return
	}

	svc.Lock()
	defer svc.Unlock()

	if mapping != MappingNone {
		for i := range svc.axes {
			if i != axis && svc.axes[i].Mapping == mapping {
				svc.axes[i].Mapping = MappingNone
			}
		}
	}

	svc.axes[axis].Mapping = mapping
}

func (svc *service) SetAxisInversion(axis int, inverted bool) {
	if axis < 0 || axis >= MaxAxes {
		return
	}

	svc.Lock()
	defer svc.Unlock()

	svc.axes[axis].Inverted = inverted
}

// SetAxisRangeLimit restricts an axis to its positive half, for throttle
// control from auto-centering sticks.
func (svc *service) SetAxisRangeLimit(axis int, limited bool) {
	if axis < 0 || axis >= MaxAxes {
		return
	}

	svc.Lock()
	defer svc.Unlock()

	svc.axes[axis].RangeLimited = limited
}

func (svc *service) MappingForAxis(axis int) Mapping {
	if axis < 0 || axis >= MaxAxes {
		return MappingNone
	}

	svc.Lock()
	defer svc.Unlock()

	return svc.axes[axis].Mapping
}

// AxisForMapping returns the physical axis holding a channel, or -1 when
// the channel is unassigned.
func (svc *service) AxisForMapping(mapping Mapping) int {
	if mapping == MappingNone {
		return -1
	}

	svc.Lock()
	defer svc.Unlock()

	for i := 0; i < svc.info.Axes; i++ {
		if svc.axes[i].Mapping == mapping {
			return i
		}
	}

	return -1
}

// CurrentValueForAxis returns the most recent calibrated reading for a
// physical axis, or NaN for an axis the active device does not have.
func (svc *service) CurrentValueForAxis(axis int) float64 {
	svc.Lock()
	defer svc.Unlock()

	if axis < 0 || axis >= svc.info.Axes || axis >= len(svc.last.Axes) {
		return Undefined()
	}

	return svc.last.Axes[axis]
}

func (svc *service) InvertedForAxis(axis int) bool {
	if axis < 0 || axis >= MaxAxes {
		return false
	}

	svc.Lock()
	defer svc.Unlock()

	return svc.axes[axis].Inverted
}

func (svc *service) RangeLimitForAxis(axis int) bool {
	if axis < 0 || axis >= MaxAxes {
		return false
	}

	svc.Lock()
	defer svc.Unlock()

	return svc.axes[axis].RangeLimited
}

// LoadSettings re-applies the stored configuration for the active device.
// A device with no stored settings keeps its defaults.
func (svc *service) LoadSettings() {
	svc.Lock()
	defer svc.Unlock()

	if svc.settings == nil || svc.info.Name == "" {
		return
	}

	stored, ok := svc.settings.Load(svc.info.Name)
	if !ok {
		return
	}

	for i := range svc.axes {
		svc.axes[i] = AxisConfig{}
	}
	for i := 0; i < len(stored) && i < MaxAxes; i++ {
		svc.axes[i] = stored[i]
	}
}

func (svc *service) StoreSettings() {
	svc.Lock()

	name := svc.info.Name
	axes := make([]AxisConfig, svc.info.Axes)
	copy(axes, svc.axes[:svc.info.Axes])

	svc.Unlock()

	if svc.settings == nil || name == "" {
		return
	}

	if err := svc.settings.Save(name, axes); err != nil {
		svc.log.Error("store settings failed",
			zap.String("device", name),
			zap.Error(err))
	}
}

func (svc *service) AddListener(l Listener) {
	svc.Lock()
	defer svc.Unlock()

	svc.listeners = append(svc.listeners, l)
}
