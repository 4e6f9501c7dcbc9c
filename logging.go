package joystick

import (
	"go.uber.org/zap"
)

func LoggingMiddleware(log *zap.Logger) ServiceMiddleware {
	return func(next Service) Service {
		log := log.With(
			zap.String("service", "joystick"),
		)

		log.Info("service built")

		return &loggingMiddleware{log, next}
	}
}

type loggingMiddleware struct {
	log  *zap.Logger
	next Service
}

func (mw *loggingMiddleware) Start() error {
	log := mw.log.With(
		zap.String("action", "start"),
	)

	if err := mw.next.Start(); err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("started")
	return nil
}

func (mw *loggingMiddleware) Shutdown() {
	log := mw.log.With(
		zap.String("action", "shutdown"),
	)

	mw.next.Shutdown()

	log.Info("stopped")
}

func (mw *loggingMiddleware) SetActiveJoystick(id int) {
	mw.next.SetActiveJoystick(id)

	if device, ok := mw.next.ActiveDevice(); ok {
		mw.log.Info("active joystick",
			zap.String("action", "set_active_joystick"),
			zap.String("device", device.Name))
	}
}

func (mw *loggingMiddleware) SetActiveUAS(sink ControlSink) {
	mw.next.SetActiveUAS(sink)

	mw.log.Info("control sink updated",
		zap.String("action", "set_active_uas"),
		zap.Bool("forwarding", sink != nil))
}

func (mw *loggingMiddleware) SetAxisMapping(axis int, mapping Mapping) {
	mw.next.SetAxisMapping(axis, mapping)

	mw.log.Info("axis mapped",
		zap.String("action", "set_axis_mapping"),
		zap.Int("axis", axis),
		zap.String("mapping", mapping.String()))
}

func (mw *loggingMiddleware) SetAxisInversion(axis int, inverted bool) {
	mw.next.SetAxisInversion(axis, inverted)

	mw.log.Info("axis inversion updated",
		zap.String("action", "set_axis_inversion"),
		zap.Int("axis", axis),
		zap.Bool("inverted", inverted))
}

func (mw *loggingMiddleware) SetAxisRangeLimit(axis int, limited bool) {
	mw.next.SetAxisRangeLimit(axis, limited)

	mw.log.Info("axis range limit updated",
		zap.String("action", "set_axis_range_limit"),
		zap.Int("axis", axis),
		zap.Bool("limited", limited))
}

func (mw *loggingMiddleware) LoadSettings() {
	mw.next.LoadSettings()

	mw.log.Info("settings loaded",
		zap.String("action", "load_settings"))
}

func (mw *loggingMiddleware) StoreSettings() {
	mw.next.StoreSettings()

	mw.log.Info("settings stored",
		zap.String("action", "store_settings"))
}

func (mw *loggingMiddleware) Devices() []DeviceInfo {
	return mw.next.Devices()
}

func (mw *loggingMiddleware) ActiveDevice() (DeviceInfo, bool) {
	return mw.next.ActiveDevice()
}

func (mw *loggingMiddleware) MappingForAxis(axis int) Mapping {
	return mw.next.MappingForAxis(axis)
}

func (mw *loggingMiddleware) AxisForMapping(mapping Mapping) int {
	return mw.next.AxisForMapping(mapping)
}

func (mw *loggingMiddleware) CurrentValueForAxis(axis int) float64 {
	return mw.next.CurrentValueForAxis(axis)
}

func (mw *loggingMiddleware) InvertedForAxis(axis int) bool {
	return mw.next.InvertedForAxis(axis)
}

func (mw *loggingMiddleware) RangeLimitForAxis(axis int) bool {
	return mw.next.RangeLimitForAxis(axis)
}

func (mw *loggingMiddleware) AddListener(l Listener) {
	mw.next.AddListener(l)
}
