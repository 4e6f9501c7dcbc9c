package joystick

import (
	"encoding/json"
	"strings"

	"github.com/nats-io/nats.go/micro"
	"github.com/pion/webrtc/v4"
)

type AxisState struct {
	Axis         int      `json:"axis"`
	Value        *float64 `json:"value"`
	Mapping      string   `json:"mapping"`
	Inverted     bool     `json:"inverted"`
	RangeLimited bool     `json:"rangeLimited"`
}

func axisState(svc Service, axis int) AxisState {
	return AxisState{
		Axis:         axis,
		Value:        jsonValue(svc.CurrentValueForAxis(axis)),
		Mapping:      svc.MappingForAxis(axis).String(),
		Inverted:     svc.InvertedForAxis(axis),
		RangeLimited: svc.RangeLimitForAxis(axis),
	}
}

func DevicesHandler(svc Service) micro.HandlerFunc {
	return func(r micro.Request) {
		r.RespondJSON(svc.Devices())
	}
}

func SelectDeviceHandler(svc Service) micro.HandlerFunc {
	return func(r micro.Request) {
		var req struct {
			ID int `json:"id"`
		}

		if err := json.Unmarshal(r.Data(), &req); err != nil {
			r.Error("400", err.Error(), nil)
			return
		}

		svc.SetActiveJoystick(req.ID)

		device, ok := svc.ActiveDevice()
		if !ok || device.ID != req.ID {
			r.Error("404", "device not found", nil)
			return
		}

		r.RespondJSON(&device)
	}
}

func AxisMappingHandler(svc Service) micro.HandlerFunc {
	return func(r micro.Request) {
		var req struct {
			Axis    int    `json:"axis"`
			Mapping string `json:"mapping"`
		}

		if err := json.Unmarshal(r.Data(), &req); err != nil {
			r.Error("400", err.Error(), nil)
			return
		}

		mapping, err := ParseMapping(req.Mapping)
		if err != nil {
			r.Error("400", err.Error(), nil)
			return
		}

		svc.SetAxisMapping(req.Axis, mapping)

		state := axisState(svc, req.Axis)
		r.RespondJSON(&state)
	}
}

func AxisCalibrationHandler(svc Service) micro.HandlerFunc {
	return func(r micro.Request) {
		var req struct {
			Axis         int   `json:"axis"`
			Inverted     *bool `json:"inverted"`
			RangeLimited *bool `json:"rangeLimited"`
		}

		if err := json.Unmarshal(r.Data(), &req); err != nil {
			r.Error("400", err.Error(), nil)
			return
		}

		if req.Inverted != nil {
			svc.SetAxisInversion(req.Axis, *req.Inverted)
		}

		if req.RangeLimited != nil {
			svc.SetAxisRangeLimit(req.Axis, *req.RangeLimited)
		}

		state := axisState(svc, req.Axis)
		r.RespondJSON(&state)
	}
}

func StateHandler(svc Service) micro.HandlerFunc {
	return func(r micro.Request) {
		device, ok := svc.ActiveDevice()
		if !ok {
			r.Error("404", "no active device", nil)
			return
		}

		axes := make([]AxisState, device.Axes)
		for i := range axes {
			axes[i] = axisState(svc, i)
		}

		r.RespondJSON(&struct {
			Device DeviceInfo  `json:"device"`
			Axes   []AxisState `json:"axes"`
		}{device, axes})
	}
}

func AcceptPeerHandler(peers *PeerManager) micro.HandlerFunc {
	return func(r micro.Request) {
		var offer *webrtc.SessionDescription
		if err := json.Unmarshal(r.Data(), &offer); err != nil {
			r.Error("400", err.Error(), nil)
			return
		}

		// A JSON null decodes into a nil pointer without error.
		if offer == nil {
			r.Error("400", "offer required", nil)
			return
		}

		reply, ok := strings.CutSuffix(r.Reply(), ".sdp.answer")
		if !ok {
			r.Error("400", "invalid reply", nil)
			return
		}

		peer, err := peers.AcceptPeer(*offer, reply)
		if err != nil {
			r.Error("417", err.Error(), nil)
			return
		}

		answer := peer.LocalDescription()
		r.RespondJSON(&answer)
	}
}
