// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

package discord

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/tracktarr/internal/config"
	"github.com/tomtom215/tracktarr/internal/logging"
)

// DefaultGatewayURL is the JSON-encoded v10 gateway.
const DefaultGatewayURL = "wss://gateway.discord.gg/?v=10&encoding=json"

// Gateway opcodes.
const (
	opDispatch       = 0
	opHeartbeat      = 1
	opIdentify       = 2
	opReconnect      = 7
	opInvalidSession = 9
	opHello          = 10
	opHeartbeatAck   = 11
)

// Intents requested on IDENTIFY.
const (
	intentGuilds                = 1 << 0
	intentGuildMessageReactions = 1 << 10
)

const (
	minBackoff = time.Second
	maxBackoff = 32 * time.Second
)

var errReconnect = errors.New("gateway asked to reconnect")

// ReactionHandler receives reaction dispatches in arrival order.
type ReactionHandler func(ctx context.Context, r Reaction)

type frame struct {
	Op   int             `json:"op"`
	Data json.RawMessage `json:"d,omitempty"`
	Seq  *int64          `json:"s,omitempty"`
	Type string          `json:"t,omitempty"`
}

type outFrame struct {
	Op   int `json:"op"`
	Data any `json:"d"`
}

// Gateway keeps a websocket session with the Discord gateway.
type Gateway struct {
	url     string
	token   string
	handler ReactionHandler
	dialer  websocket.Dialer
	sleep   func(ctx context.Context, d time.Duration) error

	mu        sync.Mutex
	connected bool
}

// NewGateway creates a gateway session manager. handler is called for every
// reaction, bots included; filtering is the caller's policy.
func NewGateway(cfg *config.DiscordConfig, handler ReactionHandler) *Gateway {
	url := cfg.GatewayURL
	if url == "" {
		url = DefaultGatewayURL
	}
	return &Gateway{
		url:     url,
		token:   cfg.BotToken,
		handler: handler,
		dialer:  websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		sleep:   sleepContext,
	}
}

// Connected reports whether a session is currently identified.
func (g *Gateway) Connected() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.connected
}

func (g *Gateway) setConnected(v bool) {
	g.mu.Lock()
	g.connected = v
	g.mu.Unlock()
}

// Serve runs sessions until ctx is canceled, reconnecting with exponential
// backoff. A session that reached READY resets the backoff.
func (g *Gateway) Serve(ctx context.Context) error {
	backoff := minBackoff
	for {
		ready, err := g.session(ctx)
		g.setConnected(false)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if ready {
			backoff = minBackoff
		}
		logging.Warn().Err(err).Dur("delay", backoff).Msg("[discord-gateway] Session ended, reconnecting")
		if err := g.sleep(ctx, backoff); err != nil {
			return err
		}
		backoff = nextBackoff(backoff)
	}
}

// String names the service in supervisor logs.
func (g *Gateway) String() string {
	return "discord-gateway"
}

func nextBackoff(d time.Duration) time.Duration {
	return min(d*2, maxBackoff)
}

// session runs one connection. It reports whether READY was received.
func (g *Gateway) session(ctx context.Context) (ready bool, err error) {
	conn, resp, err := g.dialer.DialContext(ctx, g.url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return false, fmt.Errorf("dial gateway: %w", err)
	}
	defer conn.Close()

	sessCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	// Unblock ReadJSON on cancellation.
	go func() {
		<-sessCtx.Done()
		_ = conn.Close()
	}()

	var hello frame
	if err := conn.ReadJSON(&hello); err != nil {
		return false, fmt.Errorf("read hello: %w", err)
	}
	if hello.Op != opHello {
		return false, fmt.Errorf("expected hello, got op %d", hello.Op)
	}
	var hb struct {
		Interval int64 `json:"heartbeat_interval"`
	}
	if err := json.Unmarshal(hello.Data, &hb); err != nil || hb.Interval <= 0 {
		return false, fmt.Errorf("invalid hello payload: %s", hello.Data)
	}

	w := &writer{conn: conn}
	var seq sequence
	if err := w.send(opIdentify, g.identify()); err != nil {
		return false, fmt.Errorf("identify: %w", err)
	}

	heartbeatErr := make(chan error, 1)
	go func() {
		heartbeatErr <- g.heartbeat(sessCtx, w, &seq, time.Duration(hb.Interval)*time.Millisecond)
	}()

	var selfID string
	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			select {
			case hbErr := <-heartbeatErr:
				if hbErr != nil {
					return ready, hbErr
				}
			default:
			}
			return ready, fmt.Errorf("read: %w", err)
		}
		if f.Seq != nil {
			seq.set(*f.Seq)
		}

		switch f.Op {
		case opDispatch:
			switch f.Type {
			case "READY":
				selfID = readyUserID(f.Data)
				ready = true
				g.setConnected(true)
				logging.Info().Str("bot_id", selfID).Msg("[discord-gateway] Connected")
			case "MESSAGE_REACTION_ADD":
				r, err := parseReaction(f.Data)
				if err != nil {
					logging.Warn().Err(err).Msg("[discord-gateway] Dropping malformed reaction")
					continue
				}
				if r.UserID == selfID {
					r.Bot = true
				}
				g.handler(ctx, r)
			}
		case opHeartbeat:
			if err := w.send(opHeartbeat, seq.get()); err != nil {
				return ready, fmt.Errorf("heartbeat: %w", err)
			}
		case opHeartbeatAck:
		case opReconnect:
			return ready, errReconnect
		case opInvalidSession:
			return ready, errors.New("invalid session")
		}
	}
}

func (g *Gateway) identify() any {
	return map[string]any{
		"token":   g.token,
		"intents": intentGuilds | intentGuildMessageReactions,
		"properties": map[string]string{
			"os":      runtime.GOOS,
			"browser": "tracktarr",
			"device":  "tracktarr",
		},
	}
}

func (g *Gateway) heartbeat(ctx context.Context, w *writer, seq *sequence, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.send(opHeartbeat, seq.get()); err != nil {
				return fmt.Errorf("heartbeat: %w", err)
			}
		}
	}
}

// writer serializes writes; the websocket allows one concurrent writer.
type writer struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *writer) send(op int, data any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
		return err
	}
	return w.conn.WriteJSON(outFrame{Op: op, Data: data})
}

// sequence is the last dispatch sequence number, nil before the first.
type sequence struct {
	mu  sync.Mutex
	val *int64
}

func (s *sequence) set(v int64) {
	s.mu.Lock()
	s.val = &v
	s.mu.Unlock()
}

func (s *sequence) get() *int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.val
}

func readyUserID(data []byte) string {
	var ready struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	if err := json.Unmarshal(data, &ready); err != nil {
		return ""
	}
	return ready.User.ID
}

func parseReaction(data []byte) (Reaction, error) {
	var raw struct {
		UserID    string `json:"user_id"`
		ChannelID string `json:"channel_id"`
		MessageID string `json:"message_id"`
		GuildID   string `json:"guild_id"`
		Member    *struct {
			User struct {
				Bot bool `json:"bot"`
			} `json:"user"`
		} `json:"member"`
		Emoji struct {
			Name string `json:"name"`
		} `json:"emoji"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Reaction{}, fmt.Errorf("decode reaction: %w", err)
	}
	if raw.MessageID == "" || raw.UserID == "" {
		return Reaction{}, fmt.Errorf("reaction without message or user: %s", data)
	}
	return Reaction{
		MessageID: raw.MessageID,
		ChannelID: raw.ChannelID,
		GuildID:   raw.GuildID,
		UserID:    raw.UserID,
		Emoji:     raw.Emoji.Name,
		Bot:       raw.Member != nil && raw.Member.User.Bot,
	}, nil
}
