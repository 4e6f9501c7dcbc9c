package joystick

import (
	"encoding/json"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// MQTTSink forwards control updates to a broker topic as JSON.
type MQTTSink struct {
	client mqtt.Client
	topic  string
}

func NewMQTTSink(cfg *MQTTControls) (*MQTTSink, error) {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "joystick"
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID)

	client := mqtt.NewClient(opts)

	token := client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, err
	}

	return &MQTTSink{
		client: client,
		topic:  cfg.Topic,
	}, nil
}

func (sink *MQTTSink) SendControls(update ControlUpdate) error {
	bs, err := json.Marshal(&update)
	if err != nil {
		return err
	}

	token := sink.client.Publish(sink.topic, 0, false, bs)
	token.Wait()

	return token.Error()
}

func (sink *MQTTSink) Close() {
	sink.client.Disconnect(250)
}

// NATSPublisher mirrors poll-loop notifications onto NATS subjects under
// a base subject, for any number of remote observers.
type NATSPublisher struct {
	log     *zap.Logger
	nc      *nats.Conn
	subject string
}

func NewNATSPublisher(nc *nats.Conn, subject string) *NATSPublisher {
	return &NATSPublisher{
		log: zap.L().With(
			zap.String("listener", "nats"),
			zap.String("subject", subject),
		),
		nc:      nc,
		subject: subject,
	}
}

func (pub *NATSPublisher) ControlUpdated(update ControlUpdate) {
	bs, err := json.Marshal(&update)
	if err != nil {
		pub.log.Error(err.Error())
		return
	}

	pub.nc.Publish(pub.subject, bs)
}

func (pub *NATSPublisher) AxisValueChanged(axis int, value float64) {
	bs, err := json.Marshal(&struct {
		Axis  int      `json:"axis"`
		Value *float64 `json:"value"`
	}{axis, jsonValue(value)})

	if err != nil {
		pub.log.Error(err.Error())
		return
	}

	pub.nc.Publish(pub.subject+".axes", bs)
}

func (pub *NATSPublisher) ButtonPressed(button int) {
	pub.publishButton(button, true)
}

func (pub *NATSPublisher) ButtonReleased(button int) {
	pub.publishButton(button, false)
}

func (pub *NATSPublisher) publishButton(button int, pressed bool) {
	bs, err := json.Marshal(&struct {
		Button  int  `json:"button"`
		Pressed bool `json:"pressed"`
	}{button, pressed})

	if err != nil {
		pub.log.Error(err.Error())
		return
	}

	pub.nc.Publish(pub.subject+".buttons", bs)
}

func (pub *NATSPublisher) HatChanged(x, y int) {
	bs, err := json.Marshal(&struct {
		X int `json:"x"`
		Y int `json:"y"`
	}{x, y})

	if err != nil {
		pub.log.Error(err.Error())
		return
	}

	pub.nc.Publish(pub.subject+".hat", bs)
}
