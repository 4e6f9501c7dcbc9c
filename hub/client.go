package hub

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/flarexio/joystick"
)

// Controller is the slice of the joystick service a GUI client may drive.
type Controller interface {
	SetActiveJoystick(id int)
	SetAxisMapping(axis int, mapping joystick.Mapping)
	SetAxisInversion(axis int, inverted bool)
	SetAxisRangeLimit(axis int, limited bool)
}

// ClientMessage is a command sent by a GUI client.
type ClientMessage struct {
	Type         string `json:"type"` // "select_device", "set_mapping", "set_calibration"
	ID           int    `json:"id,omitempty"`
	Axis         int    `json:"axis,omitempty"`
	Mapping      string `json:"mapping,omitempty"`
	Inverted     *bool  `json:"inverted,omitempty"`
	RangeLimited *bool  `json:"rangeLimited,omitempty"`
}

type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, 256),
	}
}

// WritePump drains the send channel onto the websocket connection.
func (c *Client) WritePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			break
		}
	}
}

// ReadPump handles GUI commands until the connection drops.
func (c *Client) ReadPump(ctrl Controller) {
	log := c.hub.log.With(
		zap.String("handler", "read_pump"),
	)

	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Error(err.Error())
			continue
		}

		switch msg.Type {
		case "select_device":
			ctrl.SetActiveJoystick(msg.ID)

		case "set_mapping":
			mapping, err := joystick.ParseMapping(msg.Mapping)
			if err != nil {
				log.Error(err.Error())
				continue
			}

			ctrl.SetAxisMapping(msg.Axis, mapping)

		case "set_calibration":
			if msg.Inverted != nil {
				ctrl.SetAxisInversion(msg.Axis, *msg.Inverted)
			}
			if msg.RangeLimited != nil {
				ctrl.SetAxisRangeLimit(msg.Axis, *msg.RangeLimited)
			}
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // GCS and GUI run on the same host
	},
}

// Handler upgrades GUI connections and attaches them to the hub.
func Handler(h *Hub, ctrl Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.log.Error(err.Error())
			return
		}

		client := NewClient(h, conn)
		h.Register(client)

		go client.WritePump()
		go client.ReadPump(ctrl)
	}
}
