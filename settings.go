package joystick

import (
	"errors"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// FileSettings persists per-device axis configuration, keyed by device
// name, as a single YAML document.
type FileSettings struct {
	path string

	devices map[string][]AxisConfig
	sync.Mutex
}

func NewFileSettings(path string) (*FileSettings, error) {
	settings := &FileSettings{
		path:    path,
		devices: make(map[string][]AxisConfig),
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return settings, nil
		}

		return nil, err
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&settings.devices); err != nil {
		return nil, err
	}

	return settings, nil
}

// Load returns the stored configuration for a device, or false when the
// device has never been configured.
func (settings *FileSettings) Load(device string) ([]AxisConfig, bool) {
	settings.Lock()
	defer settings.Unlock()

	axes, ok := settings.devices[device]
	if !ok {
		return nil, false
	}

	out := make([]AxisConfig, len(axes))
	copy(out, axes)

	return out, true
}

func (settings *FileSettings) Save(device string, axes []AxisConfig) error {
	if device == "" {
		return errors.New("device name required")
	}

	settings.Lock()
	defer settings.Unlock()

	stored := make([]AxisConfig, len(axes))
	copy(stored, axes)
	settings.devices[device] = stored

	return settings.flush()
}

func (settings *FileSettings) flush() error {
	bs, err := yaml.Marshal(settings.devices)
	if err != nil {
		return err
	}

	return os.WriteFile(settings.path, bs, 0644)
}
