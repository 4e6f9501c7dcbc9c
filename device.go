package joystick

// Driver is the external input library. Enumeration is a pure query,
// re-run on demand rather than cached.
type Driver interface {
	Devices() ([]DeviceInfo, error)
	Open(id int) (Device, error)
}

// Device is one opened joystick. Read returns the current sample without
// blocking; a read failure means the hardware went away and the cycle is
// skipped, not that the service is broken.
type Device interface {
	Info() DeviceInfo
	Read() (State, error)
	Close()
}
