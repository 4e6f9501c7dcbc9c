package joystick

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFileSettings(t *testing.T) {
	assert := assert.New(t)

	path := filepath.Join(t.TempDir(), "settings.yaml")

	settings, err := NewFileSettings(path)
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	_, ok := settings.Load("InterLink Elite")
	assert.False(ok)

	axes := []AxisConfig{
		{Mapping: MappingRoll},
		{Mapping: MappingPitch, Inverted: true},
		{Mapping: MappingYaw},
		{Mapping: MappingThrottle, RangeLimited: true},
	}

	if err := settings.Save("InterLink Elite", axes); err != nil {
		assert.Fail(err.Error())
		return
	}

	// A second store reads back what the first one wrote.
	reloaded, err := NewFileSettings(path)
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	stored, ok := reloaded.Load("InterLink Elite")
	if assert.True(ok) {
		assert.Equal(axes, stored)
	}

	_, ok = reloaded.Load("Thumbpad")
	assert.False(ok)
}

func TestFileSettingsRequiresName(t *testing.T) {
	assert := assert.New(t)

	path := filepath.Join(t.TempDir(), "settings.yaml")

	settings, err := NewFileSettings(path)
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Error(settings.Save("", nil))
}
