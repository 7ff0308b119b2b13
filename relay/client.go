package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/hivelink/warden/core"
	"github.com/hivelink/warden/internal/chain"
)

// ErrNoSession is returned when an operation needs a paired relay session
// and none is stored for the account.
var ErrNoSession = errors.New("no stored relay session")

// State is the connection state of the relay channel.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateAttaching
	StateReady
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateAttaching:
		return "attaching"
	case StateReady:
		return "ready"
	}
	return "unknown"
}

// PairingPrompt is handed to the OnPending callback when an authenticate
// request is acknowledged. URI is rendered as a QR code and deep link.
type PairingPrompt struct {
	UUID      string
	Account   string
	URI       string
	ExpiresAt time.Time
}

// Options configures a relay client.
type Options struct {
	// Host is the relay WebSocket URL.
	Host string

	// Sessions persists pairing sessions; defaults to an in-memory store.
	Sessions SessionStore

	// AttachRetries bounds reconnect attempts during session resumption.
	AttachRetries int

	// AttachBackoff is the delay between attach attempts.
	AttachBackoff time.Duration

	// AttachTimeout bounds how long one attach acknowledgment is awaited.
	AttachTimeout time.Duration

	// RequestTTL is the fallback request expiry when the relay does not
	// announce one.
	RequestTTL time.Duration

	// OnPending is invoked when a pairing request is waiting for the
	// out-of-band approval.
	OnPending func(PairingPrompt)

	// VerifyApproval validates the signed proof inside an approval before
	// it is trusted. When nil the signature is verified against the key
	// the approval itself declares.
	VerifyApproval func(account string, digest []byte, ack *ChallengeAck) error

	Dialer *websocket.Dialer
	Logger *logrus.Entry
}

// Client is a relay protocol client. One client owns one WebSocket shared
// by all operations; concurrent requests are routed by correlation UUID so
// responses can never cross between requests.
type Client struct {
	opts     Options
	sessions SessionStore
	log      *logrus.Entry

	mu       sync.Mutex
	conn     *websocket.Conn
	state    State
	attached string // account whose session is live on this connection
	pending  map[string]*pendingRequest
	attachCh chan error
	closed   bool

	writeMu sync.Mutex
}

// NewClient creates a relay client. Connect is lazy: the socket is dialed
// on first use.
func NewClient(opts Options) *Client {
	if opts.Sessions == nil {
		opts.Sessions = NewMemorySessionStore()
	}
	if opts.AttachRetries <= 0 {
		opts.AttachRetries = 3
	}
	if opts.AttachBackoff <= 0 {
		opts.AttachBackoff = 2 * time.Second
	}
	if opts.AttachTimeout <= 0 {
		opts.AttachTimeout = 10 * time.Second
	}
	if opts.RequestTTL <= 0 {
		opts.RequestTTL = 2 * time.Minute
	}
	log := opts.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Client{
		opts:     opts,
		sessions: opts.Sessions,
		log:      log.WithField("component", "relay"),
		pending:  make(map[string]*pendingRequest),
	}
}

// State returns the current channel state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Sessions exposes the session store so callers can clear credentials on
// logout.
func (c *Client) Sessions() SessionStore {
	return c.sessions
}

// Connect dials the relay if the channel is down. The socket stays open
// across requests; cancelling an individual request leaves it connected.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("client closed: %w", core.ErrBackendUnavailable)
	}
	if c.conn != nil {
		c.mu.Unlock()
		return nil
	}
	c.state = StateConnecting
	c.mu.Unlock()

	dialer := c.opts.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	}

	conn, resp, err := dialer.DialContext(ctx, c.opts.Host, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		c.mu.Lock()
		c.state = StateDisconnected
		c.mu.Unlock()
		return fmt.Errorf("dial relay %s: %v: %w", c.opts.Host, err, core.ErrBackendUnavailable)
	}

	c.mu.Lock()
	c.conn = conn
	c.state = StateReady
	c.mu.Unlock()

	go c.readLoop(conn)
	return nil
}

// Close tears the channel down entirely and fails every pending request.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.state = StateDisconnected
	pending := c.pending
	c.pending = make(map[string]*pendingRequest)
	c.mu.Unlock()

	for _, req := range pending {
		req.resolve(nil, fmt.Errorf("relay client closed: %w", core.ErrBackendUnavailable))
	}
	if conn != nil {
		return conn.Close()
	}
	return nil
}

// Authenticate runs a fresh pairing: it sends an authenticate request,
// reports the scannable pairing URI through OnPending, waits for the
// out-of-band approval and verifies the signed proof before trusting it.
// On success the resumable session is persisted.
func (c *Client) Authenticate(ctx context.Context, account string, challenge []byte) (*Session, *ChallengeAck, error) {
	if err := c.Connect(ctx); err != nil {
		return nil, nil, err
	}

	req := c.register()
	defer c.deregister(req.uuid)

	data := mustJSON(challengeData{Challenge: string(challenge)})
	if err := c.send(&envelope{Cmd: cmdAuthReq, UUID: req.uuid, Account: account, Data: data}); err != nil {
		return nil, nil, err
	}

	env, err := c.await(ctx, req, func(update *envelope) {
		expires := c.armExpiry(req, update.Expire)
		if c.opts.OnPending != nil {
			c.opts.OnPending(PairingPrompt{
				UUID:      req.uuid,
				Account:   account,
				URI:       PairingURI(req.uuid, account, update.Key, c.opts.Host),
				ExpiresAt: expires,
			})
		}
	})
	if err != nil {
		return nil, nil, err
	}

	ack, err := parseAck(env)
	if err != nil {
		return nil, nil, err
	}
	if env.AuthData == nil {
		return nil, nil, fmt.Errorf("approval missing session credentials: %w", core.ErrVerificationFailed)
	}
	if err := c.verifyApproval(account, challenge, ack); err != nil {
		return nil, nil, err
	}

	session := &Session{
		Account:    account,
		Token:      env.AuthData.Token,
		PairingKey: env.AuthData.Key,
		Expire:     time.UnixMilli(env.AuthData.Expire),
	}
	if err := c.sessions.Save(session); err != nil {
		c.log.WithError(err).Warn("failed to persist relay session")
	}

	c.mu.Lock()
	c.attached = account
	c.mu.Unlock()

	return session, ack, nil
}

// Resume attaches a stored session so signing requests can be issued
// without a fresh pairing. Retries with backoff are bounded; exhaustion is
// reported as core.ErrAttachFailed, distinct from request expiry.
func (c *Client) Resume(ctx context.Context, account string) error {
	session, err := c.sessions.Load(account)
	if err != nil {
		return err
	}
	if !session.Valid() {
		return ErrNoSession
	}

	var lastErr error
	for attempt := 0; attempt < c.opts.AttachRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.opts.AttachBackoff):
			}
		}

		if err := c.Connect(ctx); err != nil {
			lastErr = err
			continue
		}

		ch := make(chan error, 1)
		c.mu.Lock()
		c.state = StateAttaching
		c.attachCh = ch
		c.mu.Unlock()

		err := c.send(&envelope{Cmd: cmdAttachReq, Token: session.Token, Key: session.PairingKey})
		if err == nil {
			select {
			case <-ctx.Done():
				c.clearAttach()
				return ctx.Err()
			case err = <-ch:
			case <-time.After(c.opts.AttachTimeout):
				err = fmt.Errorf("attach acknowledgment timed out")
			}
		}

		c.clearAttach()
		if err == nil {
			c.mu.Lock()
			c.state = StateReady
			c.attached = account
			c.mu.Unlock()
			return nil
		}

		lastErr = err
		c.log.WithError(err).WithField("attempt", attempt+1).Warn("relay attach failed")
		c.disconnect()
	}

	// The stored credentials are unusable; drop them so the next login
	// runs a fresh pairing.
	_ = c.sessions.Clear(account)
	if lastErr != nil {
		return fmt.Errorf("%v: %w", lastErr, core.ErrAttachFailed)
	}
	return core.ErrAttachFailed
}

// Challenge requests a signature over arbitrary data with a key of the
// given level. It requires a paired session (fresh or resumed).
func (c *Client) Challenge(ctx context.Context, account string, level core.AuthorityLevel, data []byte) (*ChallengeAck, error) {
	session, err := c.ensureAttached(ctx, account)
	if err != nil {
		return nil, err
	}

	req := c.register()
	defer c.deregister(req.uuid)

	body := mustJSON(challengeData{Challenge: string(data)})
	err = c.send(&envelope{
		Cmd:     cmdChallengeReq,
		UUID:    req.uuid,
		Account: account,
		KeyType: string(level),
		Token:   session.Token,
		Data:    body,
	})
	if err != nil {
		return nil, err
	}

	env, err := c.await(ctx, req, func(update *envelope) {
		c.armExpiry(req, update.Expire)
	})
	if err != nil {
		return nil, err
	}

	return parseAck(env)
}

// SignAndBroadcast requests the approving device to sign and submit a
// transaction. The raw relay result is returned.
func (c *Client) SignAndBroadcast(ctx context.Context, account string, level core.AuthorityLevel, ops json.RawMessage) (json.RawMessage, error) {
	session, err := c.ensureAttached(ctx, account)
	if err != nil {
		return nil, err
	}

	req := c.register()
	defer c.deregister(req.uuid)

	err = c.send(&envelope{
		Cmd:     cmdSignReq,
		UUID:    req.uuid,
		Account: account,
		KeyType: string(level),
		Token:   session.Token,
		Data:    ops,
	})
	if err != nil {
		return nil, err
	}

	env, err := c.await(ctx, req, func(update *envelope) {
		c.armExpiry(req, update.Expire)
	})
	if err != nil {
		return nil, err
	}

	return env.Data, nil
}

func (c *Client) ensureAttached(ctx context.Context, account string) (*Session, error) {
	session, err := c.sessions.Load(account)
	if err != nil {
		return nil, err
	}
	if !session.Valid() {
		return nil, ErrNoSession
	}

	c.mu.Lock()
	ready := c.conn != nil && c.state == StateReady && c.attached == account
	c.mu.Unlock()
	if !ready {
		if err := c.Resume(ctx, account); err != nil {
			return nil, err
		}
	}
	return session, nil
}

// register creates a pending request keyed by a fresh correlation UUID.
func (c *Client) register() *pendingRequest {
	req := &pendingRequest{
		uuid:    uuid.New().String(),
		updates: make(chan *envelope, 4),
		done:    make(chan result, 1),
	}
	c.mu.Lock()
	c.pending[req.uuid] = req
	c.mu.Unlock()
	return req
}

// deregister drops the request so any late frame for its UUID is ignored.
// The socket stays connected and idle for the next operation.
func (c *Client) deregister(id string) {
	c.mu.Lock()
	req, ok := c.pending[id]
	delete(c.pending, id)
	c.mu.Unlock()
	if ok {
		req.stopTimer()
	}
}

// armExpiry starts (or restarts) the request expiry countdown. The
// announced unix-millisecond deadline wins over the fallback TTL.
func (c *Client) armExpiry(req *pendingRequest, expireMillis int64) time.Time {
	ttl := c.opts.RequestTTL
	deadline := time.Now().Add(ttl)
	if expireMillis > 0 {
		deadline = time.UnixMilli(expireMillis)
		ttl = time.Until(deadline)
	}
	req.armExpiry(ttl)
	return deadline
}

func (c *Client) await(ctx context.Context, req *pendingRequest, onUpdate func(*envelope)) (*envelope, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case update := <-req.updates:
			if onUpdate != nil {
				onUpdate(update)
			}
		case res := <-req.done:
			return res.env, res.err
		}
	}
}

func (c *Client) send(env *envelope) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("relay channel is down: %w", core.ErrBackendUnavailable)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.WriteJSON(env); err != nil {
		return fmt.Errorf("relay write: %v: %w", err, core.ErrBackendUnavailable)
	}
	return nil
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			c.teardown(conn, err)
			return
		}
		c.dispatch(&env)
	}
}

// dispatch routes one inbound frame. Frames for unknown or already
// completed correlation IDs are dropped, which is what prevents a stale
// response from applying to a later request.
func (c *Client) dispatch(env *envelope) {
	switch EventType(env.Cmd) {
	case EventConnected:
		return

	case EventAttachSuccess, EventAttachFailure:
		c.mu.Lock()
		ch := c.attachCh
		c.mu.Unlock()
		if ch == nil {
			return
		}
		var err error
		if EventType(env.Cmd) == EventAttachFailure {
			err = fmt.Errorf("relay rejected attach: %s", env.Error)
		}
		select {
		case ch <- err:
		default:
		}
		return
	}

	c.mu.Lock()
	req := c.pending[env.UUID]
	c.mu.Unlock()
	if req == nil {
		c.log.WithFields(logrus.Fields{"cmd": env.Cmd, "uuid": env.UUID}).
			Debug("dropping frame for unknown or completed request")
		return
	}

	switch EventType(env.Cmd) {
	case EventAuthPending, EventChallengePending, EventSignPending:
		select {
		case req.updates <- env:
		default:
		}

	case EventAuthSuccess, EventChallengeSuccess, EventSignSuccess:
		req.resolve(env, nil)

	case EventAuthFailure, EventChallengeFailure, EventSignFailure:
		c.log.WithFields(logrus.Fields{"cmd": env.Cmd, "detail": env.Error}).Info("relay request rejected")
		req.resolve(nil, core.ErrUserRejected)

	case EventChallengeError, EventSignError:
		c.log.WithFields(logrus.Fields{"cmd": env.Cmd, "detail": env.Error}).Warn("relay reported processing error")
		req.resolve(nil, fmt.Errorf("relay error: %w", core.ErrBackendUnavailable))

	case EventRequestExpired:
		req.resolve(nil, core.ErrExpired)

	default:
		c.log.WithField("cmd", env.Cmd).Debug("ignoring unknown relay event")
	}
}

func (c *Client) teardown(conn *websocket.Conn, cause error) {
	c.mu.Lock()
	if c.conn != conn {
		// A newer connection already replaced this one.
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.state = StateDisconnected
	c.attached = ""
	pending := c.pending
	c.pending = make(map[string]*pendingRequest)
	ch := c.attachCh
	c.attachCh = nil
	c.mu.Unlock()

	if !c.isClosed() {
		c.log.WithError(cause).Warn("relay channel lost")
	}
	for _, req := range pending {
		req.resolve(nil, fmt.Errorf("relay channel lost: %w", core.ErrBackendUnavailable))
	}
	if ch != nil {
		select {
		case ch <- fmt.Errorf("relay channel lost: %v", cause):
		default:
		}
	}
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Client) clearAttach() {
	c.mu.Lock()
	c.attachCh = nil
	c.mu.Unlock()
}

func (c *Client) disconnect() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.state = StateDisconnected
	c.attached = ""
	c.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

func (c *Client) verifyApproval(account string, challenge []byte, ack *ChallengeAck) error {
	digest := chain.Digest(challenge)
	if c.opts.VerifyApproval != nil {
		return c.opts.VerifyApproval(account, digest, ack)
	}

	pub, err := chain.ParsePublicKey(ack.Pubkey)
	if err != nil {
		return fmt.Errorf("approval key: %v: %w", err, core.ErrVerificationFailed)
	}
	if !chain.VerifyDigest(digest, ack.Signature, pub) {
		return fmt.Errorf("approval signature does not match challenge: %w", core.ErrVerificationFailed)
	}
	return nil
}

func parseAck(env *envelope) (*ChallengeAck, error) {
	var data challengeData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("malformed approval payload: %w", err)
	}
	if data.Ack == nil {
		return nil, fmt.Errorf("approval payload missing signed proof: %w", core.ErrVerificationFailed)
	}
	return data.Ack, nil
}

func mustJSON(v interface{}) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("marshal: %v", err))
	}
	return b
}

type result struct {
	env *envelope
	err error
}

// pendingRequest is one in-flight relay transaction. resolve is
// exactly-once: a request that expired can never later be approved, and a
// late failure cannot override a success.
type pendingRequest struct {
	uuid    string
	updates chan *envelope
	done    chan result

	mu       sync.Mutex
	timer    *time.Timer
	resolved bool
}

func (r *pendingRequest) resolve(env *envelope, err error) {
	r.mu.Lock()
	if r.resolved {
		r.mu.Unlock()
		return
	}
	r.resolved = true
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.mu.Unlock()

	r.done <- result{env: env, err: err}
}

func (r *pendingRequest) armExpiry(ttl time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.resolved {
		return
	}
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(ttl, func() {
		r.resolve(nil, core.ErrExpired)
	})
}

func (r *pendingRequest) stopTimer() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}
