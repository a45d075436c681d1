// Package transport connects a session to the remote teaching service. It
// turns inbound lesson messages into session input and user intents into
// outbound messages, and owns reconnection.
package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ivlev/lessonboard/internal/eventloop"
	"github.com/ivlev/lessonboard/internal/events"
	"github.com/ivlev/lessonboard/internal/scene"
)

const (
	DefaultReconnectAttempts = 1
	DefaultReconnectBackoff  = 3 * time.Second
	DefaultDialTimeout       = 10 * time.Second
)

var ErrNotConnected = errors.New("teaching service not connected")

// StatusGaveUp is the connection status published once reconnecting has
// been given up.
const StatusGaveUp = "teaching service disconnected"

// Handler receives lesson input. It is implemented by session.Controller.
type Handler interface {
	Load(steps []scene.Step)
	Open()
	Append(step scene.Step)
	Seal()
	Start() error
	Stop()
	Next() error
	Previous() error
	Len() int
}

type Options struct {
	URL               string
	UserID            string
	ReconnectAttempts int
	ReconnectBackoff  time.Duration
	DialTimeout       time.Duration
	Publisher         events.Publisher
	Logger            *slog.Logger

	// AutoStart starts playback as soon as lesson content arrives.
	AutoStart bool
}

// Client is the connection to the teaching service. All methods must be
// called on the loop.
type Client struct {
	loop    *eventloop.Loop
	dialer  Dialer
	handler Handler
	opts    Options
	pub     events.Publisher
	log     *slog.Logger

	conversationID string

	state     State
	gen       uint64 // bumped per dial; results of older dials are dropped
	conn      Conn
	wantOpen  bool
	attempts  int
	retry     *eventloop.Timer
	sessionID string

	doc      *Document
	docSent  bool
	received bool // any lesson content arrived
	lastStep int
}

func NewClient(loop *eventloop.Loop, dialer Dialer, handler Handler, opts Options) *Client {
	if opts.ReconnectAttempts < 0 {
		opts.ReconnectAttempts = 0
	}
	if opts.ReconnectBackoff <= 0 {
		opts.ReconnectBackoff = DefaultReconnectBackoff
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = DefaultDialTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Client{
		loop:           loop,
		dialer:         dialer,
		handler:        handler,
		opts:           opts,
		pub:            opts.Publisher,
		log:            opts.Logger.With("component", "transport"),
		conversationID: uuid.NewString(),
		lastStep:       -1,
	}
}

func (c *Client) State() State { return c.state }

// SessionID is the id assigned by the service on connection.
func (c *Client) SessionID() string { return c.sessionID }

// Connect opens the connection. It is a no-op while a connection is being
// established or is open.
func (c *Client) Connect() {
	c.wantOpen = true
	if c.state == Connecting || c.state == Open {
		c.log.Debug("connect suppressed", "state", c.state)
		return
	}
	if c.state == Closing {
		// Abandon the socket still shutting down.
		c.conn = nil
		c.setState(Disconnected, "")
	}
	c.attempts = 0
	c.retry.Stop()
	c.retry = nil
	c.dial()
}

// Close shuts the connection down without reconnecting.
func (c *Client) Close() {
	c.wantOpen = false
	c.retry.Stop()
	c.retry = nil
	switch c.state {
	case Connecting:
		c.gen++
		c.setState(Disconnected, "")
	case Open:
		c.setState(Closing, "")
		if err := c.conn.Close(); err != nil {
			c.log.Debug("close", "error", err)
		}
	}
}

func (c *Client) dial() {
	c.gen++
	gen := c.gen
	c.setState(Connecting, "")
	c.log.Info("connecting", "url", c.opts.URL, "generation", gen)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.opts.DialTimeout)
		defer cancel()
		conn, err := c.dialer.Dial(ctx, c.opts.URL)
		c.loop.Post(func() { c.onDialed(gen, conn, err) })
	}()
}

func (c *Client) onDialed(gen uint64, conn Conn, err error) {
	if gen != c.gen || c.state != Connecting {
		if conn != nil {
			conn.Close()
		}
		return
	}
	if err != nil {
		c.log.Warn("connect failed", "error", err)
		c.setState(Disconnected, err.Error())
		c.scheduleReconnect()
		return
	}
	c.conn = conn
	c.attempts = 0
	c.setState(Open, "")
	go c.readLoop(gen, conn)
}

func (c *Client) readLoop(gen uint64, conn Conn) {
	for {
		data, err := conn.Read()
		if err != nil {
			c.loop.Post(func() { c.onClosed(gen, err) })
			return
		}
		c.loop.Post(func() { c.onMessage(gen, data) })
	}
}

func (c *Client) onClosed(gen uint64, err error) {
	if gen != c.gen || c.conn == nil {
		return
	}
	c.conn.Close()
	c.conn = nil
	if c.state == Closing {
		c.setState(Disconnected, "")
		return
	}
	c.log.Warn("connection lost", "error", err)
	c.setState(Disconnected, "connection lost")
	c.scheduleReconnect()
}

func (c *Client) scheduleReconnect() {
	if !c.wantOpen {
		return
	}
	if c.attempts >= c.opts.ReconnectAttempts {
		c.log.Error("giving up reconnecting", "attempts", c.attempts)
		c.publish(events.ConnectionStatus, StatusGaveUp)
		return
	}
	c.attempts++
	c.log.Info("reconnecting", "attempt", c.attempts, "backoff", c.opts.ReconnectBackoff)
	c.retry = c.loop.AfterFunc(c.opts.ReconnectBackoff, func() {
		c.retry = nil
		if c.wantOpen && c.state == Disconnected {
			c.dial()
		}
	})
}

func (c *Client) onMessage(gen uint64, data []byte) {
	if gen != c.gen || c.state != Open {
		return
	}
	m, err := DecodeInbound(data)
	if err != nil {
		c.log.Warn("dropping message", "error", err)
		return
	}
	c.log.Debug("message", "type", m.Type)

	switch m.Type {
	case MsgConnectionEstablished:
		c.sessionID = m.SessionID
		c.publish(events.ConnectionStatus, "established")
		c.requestContent()
	case MsgGenerationStarted:
		c.publish(events.LessonGenerating, "")
	case MsgLessonReady:
		c.onLessonReady(m)
	case MsgPlaybackStarted:
		c.startLocal()
	case MsgTeachingCommand:
		c.onTeachingCommand(m)
	case MsgLessonCompleted:
		c.handler.Seal()
	case MsgAIResponse:
		c.publish(events.AIResponse, m.Message)
	case MsgError:
		c.log.Warn("service error", "message", m.Message)
		c.publish(events.ServerError, m.Message)
	default:
		c.log.Debug("ignoring message", "type", m.Type)
	}
}

// onLessonReady loads the steps generated so far. An empty command list
// means the steps will follow as teaching commands.
func (c *Client) onLessonReady(m Inbound) {
	steps, issues, err := scene.ParseCommands(m.Commands)
	if err != nil {
		c.log.Warn("bad lesson", "error", err)
		return
	}
	c.logIssues(issues)
	c.received = true
	c.handler.Load(steps)
	c.lastStep = len(steps) - 1
	if len(steps) == 0 {
		c.handler.Open()
	}
	if c.opts.AutoStart {
		c.startLocal()
	}
}

// onTeachingCommand appends a streamed step. Step numbers only grow;
// duplicates and regressions are dropped.
func (c *Client) onTeachingCommand(m Inbound) {
	if m.Step == nil {
		c.log.Warn("teaching command without step")
		return
	}
	step := *m.Step
	if step <= c.lastStep {
		c.log.Debug("dropping stale teaching command", "step", step, "last", c.lastStep)
		return
	}
	parsed, issues, err := scene.ParseCommand(m.Command, step)
	if err != nil {
		c.log.Warn("bad teaching command", "step", step, "error", err)
		return
	}
	c.logIssues(issues)
	if !c.received {
		c.received = true
		c.handler.Load(nil)
		c.handler.Open()
		if c.opts.AutoStart {
			c.startLocal()
		}
	}
	c.lastStep = step
	c.handler.Append(parsed)
}

// SetDocument sets the input the next content request is made from. A new
// document is requested once; setting the same document again has no effect.
func (c *Client) SetDocument(doc Document) {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if c.doc != nil && c.doc.ID == doc.ID {
		return
	}
	c.doc = &doc
	c.docSent = false
	c.received = false
	c.lastStep = -1
	if c.sessionID != "" {
		c.requestContent()
	}
}

// requestContent sends the document once. The flag is set only after the
// write succeeds so a failed send is retried on the next connection.
func (c *Client) requestContent() {
	if c.doc == nil || c.docSent || c.received || c.state != Open {
		return
	}
	err := c.send(Outbound{
		Type:           MsgPDFDocument,
		Topic:          c.doc.Topic,
		Filename:       c.doc.Filename,
		Text:           c.doc.Text,
		ConversationID: c.conversationID,
		UserID:         c.opts.UserID,
	})
	if err != nil {
		c.log.Warn("content request failed", "error", err)
		return
	}
	c.docSent = true
	c.log.Info("content requested", "document", c.doc.ID, "filename", c.doc.Filename)
}

// StartLesson starts playback of the received steps and tells the service.
// Without any steps it asks for content instead.
func (c *Client) StartLesson() error {
	if c.handler.Len() == 0 && !c.received {
		c.requestContent()
	}
	c.startLocal()
	return c.sendIfOpen(Outbound{Type: MsgStartLesson, SessionID: c.sessionID})
}

func (c *Client) StopLesson() error {
	c.handler.Stop()
	return c.sendIfOpen(Outbound{Type: MsgStopLesson, SessionID: c.sessionID})
}

func (c *Client) NextStep() error {
	if err := c.handler.Next(); err != nil {
		return err
	}
	return c.sendIfOpen(Outbound{Type: MsgNextStep, SessionID: c.sessionID})
}

func (c *Client) PreviousStep() error {
	if err := c.handler.Previous(); err != nil {
		return err
	}
	return c.sendIfOpen(Outbound{Type: MsgPreviousStep, SessionID: c.sessionID})
}

// SendMessage sends a question from the user.
func (c *Client) SendMessage(text string) error {
	return c.send(Outbound{
		Type:      MsgUserMessage,
		Message:   text,
		UserID:    c.opts.UserID,
		SessionID: c.sessionID,
	})
}

func (c *Client) startLocal() {
	if err := c.handler.Start(); err != nil {
		c.log.Debug("start ignored", "error", err)
	}
}

// sendIfOpen sends m when connected. Local playback works without a
// connection, so a missing one is not an error here.
func (c *Client) sendIfOpen(m Outbound) error {
	if c.state != Open {
		return nil
	}
	return c.send(m)
}

func (c *Client) send(m Outbound) error {
	if c.state != Open {
		return ErrNotConnected
	}
	data, err := m.Encode(c.loop.Now())
	if err != nil {
		return err
	}
	if err := c.conn.Write(data); err != nil {
		// The reader sees the closed socket and drives the reconnect.
		c.conn.Close()
		return fmt.Errorf("send %s: %w", m.Type, err)
	}
	return nil
}

func (c *Client) setState(s State, msg string) {
	if s == c.state {
		return
	}
	if !canMove(c.state, s) {
		c.log.Warn("rejected transition", "from", c.state, "to", s)
		return
	}
	c.state = s
	if msg == "" {
		msg = s.String()
	}
	c.publish(events.ConnectionStatus, msg)
}

func (c *Client) publish(t events.Type, msg string) {
	if c.pub == nil {
		return
	}
	c.pub.Publish(events.Event{
		Type:      t,
		SessionID: c.sessionID,
		Step:      c.lastStep,
		Mode:      c.state.String(),
		Message:   msg,
		Time:      c.loop.Now(),
	})
}

func (c *Client) logIssues(issues []scene.Issue) {
	for _, is := range issues {
		c.log.Warn("skipped lesson element", "step", is.Step, "element", is.Element, "index", is.Index, "reason", is.Reason)
	}
}
