package hub

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/flarexio/joystick"
)

func receive(t *testing.T, c *Client) []byte {
	t.Helper()

	select {
	case msg := <-c.send:
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return nil
	}
}

func TestBroadcast(t *testing.T) {
	assert := assert.New(t)

	h := NewHub()
	go h.Run()

	first := NewClient(h, nil)
	second := NewClient(h, nil)

	h.Register(first)
	h.Register(second)

	// Registration is asynchronous.
	time.Sleep(10 * time.Millisecond)

	h.Broadcast([]byte("hello"))

	assert.Equal([]byte("hello"), receive(t, first))
	assert.Equal([]byte("hello"), receive(t, second))
}

func TestListenerMessages(t *testing.T) {
	assert := assert.New(t)

	h := NewHub()
	go h.Run()

	client := NewClient(h, nil)
	h.Register(client)

	time.Sleep(10 * time.Millisecond)

	l := NewListener(h)

	l.ControlUpdated(joystick.ControlUpdate{
		Roll:     0.5,
		Pitch:    joystick.Undefined(),
		Yaw:      joystick.Undefined(),
		Throttle: 1.0,
	})

	var control Message
	if err := json.Unmarshal(receive(t, client), &control); err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Equal("control", control.Type)
	assert.Equal(int64(1), control.Seq)
	if assert.NotNil(control.Control) {
		assert.Equal(0.5, control.Control.Roll)
		assert.True(joystick.IsUndefined(control.Control.Yaw))
	}

	l.AxisValueChanged(2, joystick.Undefined())

	var axis Message
	if err := json.Unmarshal(receive(t, client), &axis); err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Equal("axis", axis.Type)
	assert.Equal(int64(2), axis.Seq)
	if assert.NotNil(axis.Axis) {
		assert.Equal(2, *axis.Axis)
	}
	assert.Nil(axis.Value) // undefined readings carry no value

	l.ButtonPressed(3)

	var button Message
	if err := json.Unmarshal(receive(t, client), &button); err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Equal("button", button.Type)
	if assert.NotNil(button.Pressed) {
		assert.True(*button.Pressed)
	}

	l.HatChanged(1, -1)

	var hat Message
	if err := json.Unmarshal(receive(t, client), &hat); err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Equal("hat", hat.Type)
	if assert.NotNil(hat.HatX) {
		assert.Equal(1, *hat.HatX)
	}
	if assert.NotNil(hat.HatY) {
		assert.Equal(-1, *hat.HatY)
	}
}

func TestClientMessageDecoding(t *testing.T) {
	assert := assert.New(t)

	var msg ClientMessage
	raw := `{"type":"set_calibration","axis":3,"inverted":true}`
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Equal("set_calibration", msg.Type)
	assert.Equal(3, msg.Axis)
	if assert.NotNil(msg.Inverted) {
		assert.True(*msg.Inverted)
	}
	assert.Nil(msg.RangeLimited)
}
