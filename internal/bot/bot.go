package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v3"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/publicsuffix"

	"github.com/oncolink/telehealth/internal/core"
	"github.com/oncolink/telehealth/internal/signaling/rpc"
)

var (
	errLoginFailed      = errors.New("login failed")
	errNotJoined        = errors.New("server did not send a connection id")
	errUnexpectedStatus = errors.New("unexpected response status")
)

// Options of the probe. Email and Password are optional: the relay itself
// accepts anonymous connections.
type Options struct {
	Host     string
	Secure   bool
	Email    string
	Password string
	Username string
}

// Bot is a signaling probe: it joins both rooms, answers every offer it
// receives with a pion peer connection and logs the rest.
type Bot struct {
	Options

	client    *http.Client
	cookieJar *cookiejar.Jar
	conn      *websocket.Conn
	writeLock sync.Mutex

	id         core.ConnectionID
	iceServers []webrtc.ICEServer

	lock  sync.Mutex
	peers map[core.ConnectionID]*webrtc.PeerConnection
}

type frame struct {
	Method rpc.Method      `json:"method"`
	Params json.RawMessage `json:"params"`
}

type offerParams struct {
	Offer    webrtc.SessionDescription `json:"offer"`
	From     core.ConnectionID         `json:"from"`
	Username string                    `json:"username"`
}

type answerParams struct {
	Answer webrtc.SessionDescription `json:"answer"`
	To     core.ConnectionID         `json:"to"`
	From   core.ConnectionID         `json:"from"`
}

type candidateParams struct {
	Candidate webrtc.ICECandidateInit `json:"candidate"`
	To        core.ConnectionID       `json:"to"`
	From      core.ConnectionID       `json:"from"`
}

func New(options Options) (*Bot, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	httpClient := &http.Client{
		Timeout: 5 * time.Second,
		Jar:     jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	bot := &Bot{
		Options:   options,
		client:    httpClient,
		cookieJar: jar,
		peers:     make(map[core.ConnectionID]*webrtc.PeerConnection),
	}

	if bot.Email != "" {
		if err := bot.login(); err != nil {
			return nil, err
		}
	}

	bot.iceServers, err = bot.fetchICEServers()
	if err != nil {
		log.Warn().Err(err).Str("service", "bot").Msg("can't fetch ICE servers, using none")
	}

	return bot, nil
}

func (bot *Bot) endpoint(scheme, path string) string {
	if bot.Secure {
		scheme += "s"
	}
	u := url.URL{Scheme: scheme, Host: bot.Host, Path: path}
	return u.String()
}

func (bot *Bot) login() error {
	body, err := json.Marshal(map[string]string{"email": bot.Email, "password": bot.Password})
	if err != nil {
		return err
	}

	resp, err := bot.client.Post(bot.endpoint("http", "/api/login"), "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", errLoginFailed, resp.StatusCode)
	}

	return nil
}

func (bot *Bot) fetchICEServers() ([]webrtc.ICEServer, error) {
	resp, err := bot.client.Get(bot.endpoint("http", "/api/ice-servers"))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", errUnexpectedStatus, resp.StatusCode)
	}

	payload := struct {
		ICEServers []webrtc.ICEServer `json:"iceServers"`
	}{}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	return payload.ICEServers, nil
}

func (bot *Bot) Close() {
	bot.client.CloseIdleConnections()

	bot.lock.Lock()
	for id, pc := range bot.peers {
		pc.Close()
		delete(bot.peers, id)
	}
	bot.lock.Unlock()

	if bot.conn != nil {
		bot.conn.Close()
	}
}

// Start runs until ctx is cancelled or the server closes the connection.
func (bot *Bot) Start(ctx context.Context) error {
	defer bot.Close()

	dialer := &websocket.Dialer{
		Jar:              bot.cookieJar,
		HandshakeTimeout: 45 * time.Second,
	}

	c, resp, err := dialer.DialContext(ctx, bot.endpoint("ws", "/ws"), nil)
	if err != nil {
		return err
	}
	resp.Body.Close()

	bot.conn = c

	done := make(chan error, 1)

	go func() {
		for {
			if err := bot.readFrame(); err != nil {
				done <- err
				return
			}
		}
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		log.Info().Str("service", "bot").Msg("interrupt")

		// Cleanly close the connection by sending a close message and then
		// waiting (with timeout) for the server to close the connection.
		bot.writeLock.Lock()
		err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		bot.writeLock.Unlock()
		if err != nil {
			return err
		}

		select {
		case <-done:
		case <-time.After(time.Second):
		}
		return nil
	}
}

func (bot *Bot) readFrame() error {
	_, message, err := bot.conn.ReadMessage()
	if err != nil {
		return err
	}

	return bot.handleFrame(message)
}

// handleFrame logs and skips frames it can't decode; only a failed join stops
// the probe.
func (bot *Bot) handleFrame(message []byte) error {
	f := frame{}
	if err := json.Unmarshal(message, &f); err != nil {
		log.Warn().Err(err).Str("service", "bot").Bytes("frame", message).Msg("ignoring frame")
		return nil
	}

	log.Debug().Str("service", "bot").Str("method", string(f.Method)).RawJSON("params", f.Params).Msg("received")

	switch f.Method {
	case rpc.ConnectedMethod:
		params := rpc.ConnectedParams{}
		if !bot.decodeParams(f, &params) {
			return nil
		}
		return bot.join(params.ID)
	case rpc.OfferMethod:
		params := offerParams{}
		if !bot.decodeParams(f, &params) {
			return nil
		}
		if err := bot.answer(params); err != nil {
			log.Error().Err(err).Str("service", "bot").Str("from", string(params.From)).Msg("can't answer offer")
		}
	case rpc.ICECandidateMethod:
		params := candidateParams{}
		if !bot.decodeParams(f, &params) {
			return nil
		}
		if err := bot.addICECandidate(params); err != nil {
			log.Error().Err(err).Str("service", "bot").Str("from", string(params.From)).Msg("can't add ICE candidate")
		}
	case rpc.UserDisconnectedVideoMethod:
		params := rpc.ConnectedParams{}
		if !bot.decodeParams(f, &params) {
			return nil
		}
		bot.closePeer(params.ID)
	}

	return nil
}

func (bot *Bot) decodeParams(f frame, v interface{}) bool {
	if err := json.Unmarshal(f.Params, v); err != nil {
		log.Warn().Err(err).Str("service", "bot").Str("method", string(f.Method)).Msg("ignoring frame")
		return false
	}
	return true
}

func (bot *Bot) join(id core.ConnectionID) error {
	if id == "" {
		return errNotJoined
	}
	bot.id = id

	log.Info().Str("service", "bot").Str("connID", string(id)).Str("username", bot.Username).Msg("connected, joining rooms")

	params := rpc.JoinParams{Username: bot.Username, Time: json.RawMessage(`"` + time.Now().Format("15:04") + `"`)}
	if err := bot.write(rpc.NewJoinRpc(rpc.JoinVideoStreamMethod, params)); err != nil {
		return err
	}
	return bot.write(rpc.NewJoinRpc(rpc.JoinTextChatMethod, params))
}

func (bot *Bot) answer(offer offerParams) error {
	pc, err := bot.peerFor(offer.From)
	if err != nil {
		return err
	}

	if err := pc.SetRemoteDescription(offer.Offer); err != nil {
		return err
	}

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		return err
	}
	if err := pc.SetLocalDescription(answer); err != nil {
		return err
	}

	return bot.signal(rpc.AnswerMethod, answerParams{Answer: answer, To: offer.From, From: bot.id})
}

func (bot *Bot) addICECandidate(c candidateParams) error {
	bot.lock.Lock()
	pc, ok := bot.peers[c.From]
	bot.lock.Unlock()
	if !ok {
		return nil
	}

	return pc.AddICECandidate(c.Candidate)
}

func (bot *Bot) peerFor(remote core.ConnectionID) (*webrtc.PeerConnection, error) {
	bot.lock.Lock()
	defer bot.lock.Unlock()

	if pc, ok := bot.peers[remote]; ok {
		return pc, nil
	}

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{ICEServers: bot.iceServers})
	if err != nil {
		return nil, err
	}

	pc.OnICECandidate(func(candidate *webrtc.ICECandidate) {
		if candidate == nil {
			// All candidates are gathered
			return
		}
		err := bot.signal(rpc.ICECandidateMethod, candidateParams{Candidate: candidate.ToJSON(), To: remote, From: bot.id})
		if err != nil {
			log.Error().Err(err).Str("service", "bot").Msg("error send ICE candidate")
		}
	})
	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		log.Info().Str("service", "bot").Str("remote", string(remote)).Str("state", s.String()).Msg("peer connection state has changed")
	})

	bot.peers[remote] = pc

	return pc, nil
}

func (bot *Bot) closePeer(remote core.ConnectionID) {
	bot.lock.Lock()
	pc, ok := bot.peers[remote]
	delete(bot.peers, remote)
	bot.lock.Unlock()

	if ok {
		if err := pc.Close(); err != nil {
			log.Error().Err(err).Str("service", "bot").Msg("can't close peer connection")
		}
	}
}

func (bot *Bot) signal(method rpc.Method, params interface{}) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return err
	}

	msg, err := rpc.NewSignalRpc(method, raw)
	if err != nil {
		return err
	}

	return bot.write(msg)
}

func (bot *Bot) write(r rpc.Rpc) error {
	p, err := r.ToJSON()
	if err != nil {
		return err
	}

	bot.writeLock.Lock()
	defer bot.writeLock.Unlock()

	return bot.conn.WriteMessage(websocket.TextMessage, p)
}
