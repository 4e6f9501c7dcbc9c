package joystick

import (
	"errors"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPollInterval is used when the config does not set one. Human-rate
// input needs tens of Hz, no more.
const DefaultPollInterval = 25 * time.Millisecond

type Config struct {
	Path         string         `yaml:"-"`
	PollInterval Duration       `yaml:"poll_interval"`
	SettingsFile string         `yaml:"settings"`
	Controls     ControlsConfig `yaml:"controls"`
	WebRTC       WebRTCConfig   `yaml:"webrtc"`
	Hub          HubConfig      `yaml:"hub"`
}

func (cfg *Config) Interval() time.Duration {
	if cfg.PollInterval <= 0 {
		return DefaultPollInterval
	}

	return time.Duration(cfg.PollInterval)
}

type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return err
	}

	*d = Duration(parsed)

	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

type ControlsConfig struct {
	NATS *NATSControls `yaml:"nats"`
	MQTT *MQTTControls `yaml:"mqtt"`
}

type NATSControls struct {
	Subject string `yaml:"subject"`
}

type MQTTControls struct {
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"clientID"`
}

type HubConfig struct {
	Listen string `yaml:"listen"`
}

type WebRTCConfig struct {
	ICEServers []*ICEServer `yaml:"iceServers"`
}

type ICEServer struct {
	Provider ICEProvider `yaml:"provider"`
	ID       string      `yaml:"id"`
	Token    string      `yaml:"token"`
}

type ICEProvider int

const (
	Google ICEProvider = iota
	Metered
)

func ParseICEProvider(provider string) (ICEProvider, error) {
	switch provider {
	case "google":
		return Google, nil
	case "metered":
		return Metered, nil
	default:
		return -1, errors.New("provider not supported")
	}
}

func (provider *ICEProvider) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}

	p, err := ParseICEProvider(raw)
	if err != nil {
		return err
	}

	*provider = p

	return nil
}

func (provider ICEProvider) String() string {
	switch provider {
	case Google:
		return "google"
	case Metered:
		return "metered"
	default:
		return "unknown"
	}
}
