package joystick

import (
	"os"
	"testing"
	"time"

	"github.com/test-go/testify/assert"
	"gopkg.in/yaml.v3"
)

func TestConfig(t *testing.T) {
	assert := assert.New(t)

	f, err := os.Open("config.example.yaml")
	if err != nil {
		assert.Fail(err.Error())
		return
	}
	defer f.Close()

	var cfg *Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Equal(25*time.Millisecond, cfg.Interval())
	assert.Equal("settings.yaml", cfg.SettingsFile)

	if nats := cfg.Controls.NATS; assert.NotNil(nats) {
		assert.Equal("joystick.controls", nats.Subject)
	}

	if mqtt := cfg.Controls.MQTT; assert.NotNil(mqtt) {
		assert.Equal("tcp://localhost:1883", mqtt.Broker)
		assert.Equal("joystick/controls", mqtt.Topic)
		assert.Equal("joystick", mqtt.ClientID)
	}

	if servers := cfg.WebRTC.ICEServers; assert.Len(servers, 2) {
		assert.Equal(Google, servers[0].Provider)
		assert.Equal(Metered, servers[1].Provider)
		assert.Equal("example", servers[1].ID)
		assert.Equal("secret", servers[1].Token)
	}

	assert.Equal(":8080", cfg.Hub.Listen)
}

func TestConfigDefaults(t *testing.T) {
	assert := assert.New(t)

	var cfg Config
	if err := yaml.Unmarshal([]byte("{}"), &cfg); err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Equal(DefaultPollInterval, cfg.Interval())
	assert.Nil(cfg.Controls.NATS)
	assert.Nil(cfg.Controls.MQTT)
}

func TestICEProvider(t *testing.T) {
	assert := assert.New(t)

	provider, err := ParseICEProvider("metered")
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Equal(Metered, provider)
	assert.Equal("metered", provider.String())

	_, err = ParseICEProvider("cloudflare")
	assert.Error(err)
}
