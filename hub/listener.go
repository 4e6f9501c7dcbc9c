package hub

import (
	"encoding/json"
	"math"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/flarexio/joystick"
)

// Message is one notification pushed to GUI clients.
type Message struct {
	Type      string                  `json:"type"` // "control", "axis", "button", "hat"
	Seq       int64                   `json:"seq"`
	Timestamp int64                   `json:"timestamp"`
	Control   *joystick.ControlUpdate `json:"control,omitempty"`
	Axis      *int                    `json:"axis,omitempty"`
	Value     *float64                `json:"value,omitempty"`
	Button    *int                    `json:"button,omitempty"`
	Pressed   *bool                   `json:"pressed,omitempty"`
	HatX      *int                    `json:"hatX,omitempty"`
	HatY      *int                    `json:"hatY,omitempty"`
}

// Listener bridges poll-loop notifications onto the hub.
type Listener struct {
	hub *Hub
	seq atomic.Int64
}

func NewListener(h *Hub) *Listener {
	return &Listener{hub: h}
}

func (l *Listener) broadcast(msg *Message) {
	msg.Seq = l.seq.Add(1)
	msg.Timestamp = time.Now().UnixMilli()

	bs, err := json.Marshal(msg)
	if err != nil {
		l.hub.log.Error(err.Error(), zap.String("type", msg.Type))
		return
	}

	l.hub.Broadcast(bs)
}

func (l *Listener) ControlUpdated(update joystick.ControlUpdate) {
	l.broadcast(&Message{
		Type:    "control",
		Control: &update,
	})
}

func (l *Listener) AxisValueChanged(axis int, value float64) {
	msg := &Message{
		Type: "axis",
		Axis: &axis,
	}

	if !math.IsNaN(value) {
		msg.Value = &value
	}

	l.broadcast(msg)
}

func (l *Listener) ButtonPressed(button int) {
	pressed := true
	l.broadcast(&Message{
		Type:    "button",
		Button:  &button,
		Pressed: &pressed,
	})
}

func (l *Listener) ButtonReleased(button int) {
	pressed := false
	l.broadcast(&Message{
		Type:    "button",
		Button:  &button,
		Pressed: &pressed,
	})
}

func (l *Listener) HatChanged(x, y int) {
	l.broadcast(&Message{
		Type: "hat",
		HatX: &x,
		HatY: &y,
	})
}
