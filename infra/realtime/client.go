// Package realtime is a client for the hosted realtime service: Phoenix
// channels over a websocket, carrying row changes of subscribed tables.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/thetruth/truthterm/infra/auth"
)

const (
	defaultHeartbeat   = 25 * time.Second
	defaultJoinTimeout = 10 * time.Second
	writeTimeout       = 10 * time.Second
)

// ErrClosed is returned when subscribing on a closed client.
var ErrClosed = errors.New("realtime client closed")

// Spec selects the row changes a subscription receives.
type Spec struct {
	Schema string // defaults to public
	Table  string
	Filter string // e.g. user_id=eq.42
}

// Handlers receive events for a subscription. They run on the client's read
// goroutine and must not block for long.
type Handlers struct {
	OnInsert func(Change)
	OnUpdate func(Change)
	OnDelete func(Change)
	OnError  func(error)
}

// Option configures a Client.
type Option func(*Client)

// WithHeartbeat sets the heartbeat interval.
func WithHeartbeat(d time.Duration) Option {
	return func(c *Client) { c.heartbeat = d }
}

// WithJoinTimeout bounds how long Subscribe waits for the server to accept
// a join.
func WithJoinTimeout(d time.Duration) Option {
	return func(c *Client) { c.joinTimeout = d }
}

// WithBackOff sets the reconnect policy.
func WithBackOff(fn func() backoff.BackOff) Option {
	return func(c *Client) { c.newBackOff = fn }
}

// Client multiplexes channel subscriptions over one websocket. The socket is
// opened on the first Subscribe and reopened with backoff when it drops.
type Client struct {
	endpoint    string
	tokens      auth.TokenProvider
	log         *zap.Logger
	dialer      *websocket.Dialer
	heartbeat   time.Duration
	joinTimeout time.Duration
	newBackOff  func() backoff.BackOff

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startOnce sync.Once

	mu   sync.Mutex
	conn *websocket.Conn
	subs map[string]*Subscription
	ref  uint64

	wmu sync.Mutex
}

// NewClient creates a client for the project at baseURL.
func NewClient(baseURL, apiKey string, tokens auth.TokenProvider, log *zap.Logger, opts ...Option) (*Client, error) {
	endpoint, err := socketURL(baseURL, apiKey)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		endpoint:    endpoint,
		tokens:      tokens,
		log:         log,
		dialer:      &websocket.Dialer{HandshakeTimeout: 15 * time.Second},
		heartbeat:   defaultHeartbeat,
		joinTimeout: defaultJoinTimeout,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.MaxInterval = 30 * time.Second
			return b
		},
		ctx:    ctx,
		cancel: cancel,
		subs:   make(map[string]*Subscription),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func socketURL(baseURL, apiKey string) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("parsing realtime url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported realtime url scheme %q", u.Scheme)
	}
	u.Path += "/realtime/v1/websocket"
	q := u.Query()
	q.Set("apikey", apiKey)
	q.Set("vsn", "1.0.0")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Subscribe joins a channel for spec and returns once the server accepted
// the join. Events are delivered to h until the subscription is closed.
func (c *Client) Subscribe(ctx context.Context, spec Spec, h Handlers) (*Subscription, error) {
	if spec.Table == "" {
		return nil, errors.New("realtime: table is required")
	}
	if spec.Schema == "" {
		spec.Schema = "public"
	}
	if c.ctx.Err() != nil {
		return nil, ErrClosed
	}

	sub := &Subscription{
		client: c,
		topic:  "realtime:" + spec.Table + "-" + uuid.NewString(),
		spec:   spec,
		h:      h,
		joined: make(chan error, 1),
	}
	sub.awaitingJoin.Store(true)

	c.startOnce.Do(func() {
		c.wg.Add(1)
		go c.run()
	})

	c.mu.Lock()
	c.subs[sub.topic] = sub
	conn := c.conn
	c.mu.Unlock()

	// Without a live socket the run loop joins every registered
	// subscription once it connects.
	if conn != nil {
		if err := c.join(conn, sub); err != nil {
			c.log.Debug("join write failed, waiting for reconnect", zap.String("topic", sub.topic), zap.Error(err))
		}
	}

	timer := time.NewTimer(c.joinTimeout)
	defer timer.Stop()
	select {
	case err := <-sub.joined:
		if err != nil {
			c.remove(sub)
			return nil, err
		}
		c.log.Debug("subscribed", zap.String("topic", sub.topic), zap.String("table", spec.Table))
		return sub, nil
	case <-timer.C:
		_ = sub.Close()
		return nil, fmt.Errorf("joining %s: timed out", spec.Table)
	case <-ctx.Done():
		_ = sub.Close()
		return nil, ctx.Err()
	case <-c.ctx.Done():
		return nil, ErrClosed
	}
}

// Close leaves every channel, closes the socket and waits for the client's
// goroutines to exit.
func (c *Client) Close() error {
	c.cancel()
	c.mu.Lock()
	conn := c.conn
	for topic, sub := range c.subs {
		sub.closeOnce.Do(func() {})
		delete(c.subs, topic)
	}
	c.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
	c.wg.Wait()
	return nil
}

func (c *Client) nextRef() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ref++
	return strconv.FormatUint(c.ref, 10)
}

func (c *Client) send(conn *websocket.Conn, msg outMessage) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(msg)
}

func (c *Client) join(conn *websocket.Conn, sub *Subscription) error {
	token, err := c.tokens.AccessToken()
	if err != nil {
		return fmt.Errorf("realtime token: %w", err)
	}
	ref := c.nextRef()

	c.mu.Lock()
	sub.joinRef = ref
	sub.token = token
	c.mu.Unlock()

	return c.send(conn, outMessage{
		Topic: sub.topic,
		Event: eventJoin,
		Payload: joinPayload{
			Config: joinConfig{
				Broadcast: map[string]bool{"self": false, "ack": false},
				Presence:  map[string]any{"key": ""},
				PostgresChanges: []changeFilter{{
					Event:  "*",
					Schema: sub.spec.Schema,
					Table:  sub.spec.Table,
					Filter: sub.spec.Filter,
				}},
			},
			AccessToken: token,
		},
		Ref:     ref,
		JoinRef: ref,
	})
}

func (c *Client) remove(sub *Subscription) {
	c.mu.Lock()
	delete(c.subs, sub.topic)
	c.mu.Unlock()
}

func (c *Client) lookup(topic string) *Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subs[topic]
}

func (c *Client) snapshot() []*Subscription {
	subs := make([]*Subscription, 0, len(c.subs))
	for _, s := range c.subs {
		subs = append(subs, s)
	}
	return subs
}

// run owns the socket: it dials, serves until the connection drops and
// redials with backoff until the client is closed.
func (c *Client) run() {
	defer c.wg.Done()

	bo := c.newBackOff()
	for {
		conn, _, err := c.dialer.DialContext(c.ctx, c.endpoint, nil)
		if err == nil {
			bo.Reset()
			err = c.serve(conn)
		}
		if c.ctx.Err() != nil {
			return
		}

		c.log.Warn("realtime connection lost", zap.Error(err))
		c.broadcastError(fmt.Errorf("realtime connection lost: %w", err))

		wait := bo.NextBackOff()
		if wait == backoff.Stop {
			return
		}
		timer := time.NewTimer(wait)
		select {
		case <-c.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (c *Client) serve(conn *websocket.Conn) error {
	defer conn.Close()

	c.mu.Lock()
	c.conn = conn
	subs := c.snapshot()
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
	}()

	stop := context.AfterFunc(c.ctx, func() { conn.Close() })
	defer stop()

	for _, sub := range subs {
		if err := c.join(conn, sub); err != nil {
			return err
		}
	}

	done := make(chan struct{})
	c.wg.Add(1)
	go c.heartbeatLoop(conn, done)
	defer close(done)

	return c.readLoop(conn)
}

func (c *Client) heartbeatLoop(conn *websocket.Conn, done <-chan struct{}) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			err := c.send(conn, outMessage{
				Topic:   socketTopic,
				Event:   eventHeartbeat,
				Payload: struct{}{},
				Ref:     c.nextRef(),
			})
			if err != nil {
				// Unblocks the read loop so the connection is replaced.
				conn.Close()
				return
			}
			c.pushTokens(conn)
		}
	}
}

// pushTokens forwards a refreshed access token to joined channels so
// row-level policies keep matching after the session renews.
func (c *Client) pushTokens(conn *websocket.Conn) {
	token, err := c.tokens.AccessToken()
	if err != nil || token == "" {
		return
	}
	c.mu.Lock()
	var stale []*Subscription
	for _, s := range c.subs {
		if s.token != token {
			s.token = token
			stale = append(stale, s)
		}
	}
	c.mu.Unlock()

	for _, s := range stale {
		_ = c.send(conn, outMessage{
			Topic:   s.topic,
			Event:   eventToken,
			Payload: map[string]string{"access_token": token},
			Ref:     c.nextRef(),
		})
	}
}

func (c *Client) readLoop(conn *websocket.Conn) error {
	// The server answers every heartbeat, so silence past two intervals
	// means the connection is dead.
	readTimeout := 2*c.heartbeat + writeTimeout
	for {
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var msg inMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.log.Debug("dropping malformed realtime frame", zap.Error(err))
			continue
		}
		c.dispatch(msg)
	}
}

func (c *Client) dispatch(msg inMessage) {
	if msg.Topic == socketTopic {
		return
	}
	sub := c.lookup(msg.Topic)
	if sub == nil {
		return
	}

	switch msg.Event {
	case eventReply:
		var reply replyPayload
		if err := json.Unmarshal(msg.Payload, &reply); err != nil {
			return
		}
		c.mu.Lock()
		isJoin := msg.Ref != nil && *msg.Ref == sub.joinRef
		c.mu.Unlock()
		if !isJoin {
			return
		}
		var err error
		if reply.Status != "ok" {
			err = fmt.Errorf("joining %s: %s %s", sub.spec.Table, reply.Status, strings.TrimSpace(string(reply.Response)))
		}
		sub.joinDone(err)

	case eventChanges:
		var p changesPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			c.log.Debug("dropping malformed change", zap.String("topic", msg.Topic), zap.Error(err))
			return
		}
		sub.deliver(p.Data)

	case eventSystem:
		var p systemPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return
		}
		if p.Status == "error" {
			sub.fail(fmt.Errorf("realtime %s: %s", sub.spec.Table, p.Message))
		}

	case eventError, eventClose:
		c.log.Warn("realtime channel error", zap.String("topic", msg.Topic), zap.String("event", msg.Event))
		sub.fail(fmt.Errorf("realtime channel %s: %s", sub.spec.Table, msg.Event))
	}
}

func (c *Client) broadcastError(err error) {
	c.mu.Lock()
	subs := c.snapshot()
	c.mu.Unlock()
	for _, s := range subs {
		s.fail(err)
	}
}

// Subscription is one joined channel.
type Subscription struct {
	client    *Client
	topic     string
	spec      Spec
	h         Handlers
	joined    chan error
	closeOnce sync.Once

	// Set until the first join reply; later replies answer rejoins.
	awaitingJoin atomic.Bool

	// Guarded by client.mu.
	joinRef string
	token   string
}

// Topic returns the channel topic.
func (s *Subscription) Topic() string { return s.topic }

// Close leaves the channel. Calling it more than once is a no-op.
func (s *Subscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		c := s.client
		c.mu.Lock()
		delete(c.subs, s.topic)
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return
		}
		err = c.send(conn, outMessage{
			Topic:   s.topic,
			Event:   eventLeave,
			Payload: struct{}{},
			Ref:     c.nextRef(),
		})
		c.log.Debug("unsubscribed", zap.String("topic", s.topic))
	})
	return err
}

func (s *Subscription) joinDone(err error) {
	if s.awaitingJoin.CompareAndSwap(true, false) {
		s.joined <- err
		return
	}
	if err != nil {
		s.client.log.Warn("realtime rejoin rejected", zap.String("topic", s.topic), zap.Error(err))
		s.fail(err)
	}
}

func (s *Subscription) deliver(ch Change) {
	var fn func(Change)
	switch ch.Type {
	case ChangeInsert:
		fn = s.h.OnInsert
	case ChangeUpdate:
		fn = s.h.OnUpdate
	case ChangeDelete:
		fn = s.h.OnDelete
	}
	if fn != nil {
		fn(ch)
	}
}

func (s *Subscription) fail(err error) {
	if s.h.OnError != nil {
		s.h.OnError(err)
	}
}
