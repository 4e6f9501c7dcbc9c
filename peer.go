package joystick

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"
	"github.com/nats-io/nats.go"
	"github.com/pion/webrtc/v4"
	"go.uber.org/zap"
)

// ICEServers resolves the ICE servers for a configured provider. Hosted
// providers issue short-lived TURN credentials over HTTP.
func ICEServers(cfg *WebRTCConfig, provider ICEProvider) ([]webrtc.ICEServer, error) {
	var server *ICEServer
	for _, s := range cfg.ICEServers {
		if s.Provider == provider {
			server = s
			break
		}
	}

	if server == nil {
		return nil, errors.New("provider not configured")
	}

	switch server.Provider {
	case Google:
		return []webrtc.ICEServer{
			{
				URLs: []string{
					"stun:stun.l.google.com:19302",
					"stun:stun1.l.google.com:19302",
				},
			},
		}, nil

	case Metered:
		baseURL := fmt.Sprintf("https://%s.metered.live/api/v1", server.ID)

		client := resty.New().
			SetBaseURL(baseURL)

		type ICEServer struct {
			URLs       string `json:"urls"`
			Username   string `json:"username"`
			Credential string `json:"credential"`
		}

		var raws []ICEServer
		resp, err := client.R().
			SetQueryParam("apiKey", server.Token).
			SetResult(&raws).
			Get("/turn/credentials")

		if err != nil {
			return nil, err
		}

		if resp.StatusCode() != http.StatusOK {
			var errMsg struct {
				Error string `json:"error"`
			}

			err := json.Unmarshal(resp.Body(), &errMsg)
			if err != nil {
				return nil, err
			}

			return nil, errors.New(errMsg.Error)
		}

		servers := make([]webrtc.ICEServer, len(raws))
		for i, raw := range raws {
			servers[i] = webrtc.ICEServer{
				URLs:       []string{raw.URLs},
				Username:   raw.Username,
				Credential: raw.Credential,
			}
		}

		return servers, nil

	default:
		return nil, errors.New("provider not supported")
	}
}

// PeerManager negotiates WebRTC peers over NATS. A connected peer's
// "control" data channel becomes the active control sink.
type PeerManager struct {
	log   *zap.Logger
	cfg   *Config
	nc    *nats.Conn
	svc   Service
	peers []*Peer
	sync.Mutex
}

func NewPeerManager(cfg *Config, nc *nats.Conn, svc Service) *PeerManager {
	return &PeerManager{
		log: zap.L().With(
			zap.String("component", "peers"),
		),
		cfg:   cfg,
		nc:    nc,
		svc:   svc,
		peers: make([]*Peer, 0),
	}
}

func (m *PeerManager) AcceptPeer(offer webrtc.SessionDescription, reply string) (*Peer, error) {
	servers, err := ICEServers(&m.cfg.WebRTC, Google)
	if err != nil {
		return nil, err
	}

	configuration := webrtc.Configuration{
		ICEServers: servers,
	}

	conn, err := webrtc.NewPeerConnection(configuration)
	if err != nil {
		return nil, err
	}

	conn.OnICECandidate(func(candidate *webrtc.ICECandidate) {
		bs, err := json.Marshal(&candidate)
		if err != nil {
			return
		}

		m.nc.Publish(reply+".candidates.callee", bs)
	})

	inbox := strings.TrimPrefix(reply, "peers.negotiation.")

	peer := &Peer{
		PeerConnection: conn,
		log: m.log.With(
			zap.String("peer", inbox),
		),
	}

	peer.Init(m.svc)

	sub, err := m.nc.Subscribe(reply+".candidates.caller", peer.candidateUpdatedHandler())
	if err != nil {
		return nil, err
	}

	peer.sub = sub

	if err := conn.SetRemoteDescription(offer); err != nil {
		return nil, err
	}

	answer, err := conn.CreateAnswer(nil)
	if err != nil {
		return nil, err
	}

	gatherComplete := webrtc.GatheringCompletePromise(conn)

	if err := conn.SetLocalDescription(answer); err != nil {
		return nil, err
	}

	<-gatherComplete

	m.Lock()
	m.peers = append(m.peers, peer)
	m.Unlock()

	return peer, nil
}

func (m *PeerManager) Close() error {
	m.Lock()
	defer m.Unlock()

	for _, peer := range m.peers {
		peer.Close()
	}

	m.peers = m.peers[:0]

	return nil
}

type Peer struct {
	*webrtc.PeerConnection
	log *zap.Logger
	sub *nats.Subscription

	dc *webrtc.DataChannel
	mu sync.RWMutex
}

func (peer *Peer) Init(svc Service) {
	log := peer.log

	peer.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		log.Info("connection state updated",
			zap.String("state", state.String()))
	})

	peer.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() != "control" {
			return
		}

		dc.OnOpen(func() {
			peer.mu.Lock()
			peer.dc = dc
			peer.mu.Unlock()

			svc.SetActiveUAS(peer)

			log.Info("control channel open")
		})

		dc.OnClose(func() {
			peer.mu.Lock()
			peer.dc = nil
			peer.mu.Unlock()

			svc.SetActiveUAS(nil)

			log.Info("control channel closed")
		})
	})
}

// SendControls forwards one control frame on the data channel. Updates
// before the channel opens are dropped, not errors.
func (peer *Peer) SendControls(update ControlUpdate) error {
	peer.mu.RLock()
	dc := peer.dc
	peer.mu.RUnlock()

	if dc == nil {
		return nil
	}

	bs, err := update.MarshalBinary()
	if err != nil {
		return err
	}

	return dc.Send(bs)
}

func (peer *Peer) candidateUpdatedHandler() nats.MsgHandler {
	log := peer.log.With(
		zap.String("handler", "candidate_updated"),
	)

	return func(msg *nats.Msg) {
		var candidate webrtc.ICECandidateInit
		if err := json.Unmarshal(msg.Data, &candidate); err != nil {
			log.Error(err.Error())
			return
		}

		if err := peer.AddICECandidate(candidate); err != nil {
			log.Error(err.Error())
			return
		}

		log.Info("candidate added",
			zap.String("candidate", candidate.Candidate))
	}
}

func (peer *Peer) Close() error {
	if peer.sub != nil {
		peer.sub.Unsubscribe()
	}

	return peer.PeerConnection.Close()
}
