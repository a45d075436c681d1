package transport

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

const defaultWriteTimeout = 10 * time.Second

// Conn is one established duplex connection carrying text messages.
// Read is called from a single goroutine; Write and Close may be called
// concurrently with it.
type Conn interface {
	Read() ([]byte, error)
	Write(data []byte) error
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// WSDialer opens websocket connections.
type WSDialer struct {
	Timeout      time.Duration
	WriteTimeout time.Duration
}

func (d WSDialer) Dial(ctx context.Context, url string) (Conn, error) {
	dialer := ws.Dialer{Timeout: d.Timeout}
	conn, br, _, err := dialer.Dial(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	wt := d.WriteTimeout
	if wt <= 0 {
		wt = defaultWriteTimeout
	}
	return newWSConn(conn, br, wt), nil
}

type wsConn struct {
	conn         net.Conn
	r            io.Reader
	mu           sync.Mutex // held for a whole frame
	writeTimeout time.Duration
	closeOnce    sync.Once
	closeErr     error
}

func newWSConn(conn net.Conn, br *bufio.Reader, writeTimeout time.Duration) *wsConn {
	var r io.Reader = conn
	if br != nil {
		// Frames the server sent along with the handshake response.
		r = br
	}
	return &wsConn{conn: conn, r: r, writeTimeout: writeTimeout}
}

func (c *wsConn) Read() ([]byte, error) {
	rd := wsutil.Reader{
		Source:         c.r,
		State:          ws.StateClientSide,
		CheckUTF8:      true,
		OnIntermediate: c.handleControl,
	}
	for {
		hdr, err := rd.NextFrame()
		if err != nil {
			return nil, err
		}
		if hdr.OpCode.IsControl() {
			if err := c.handleControl(hdr, &rd); err != nil {
				return nil, err
			}
			continue
		}
		if hdr.OpCode&(ws.OpText|ws.OpBinary) == 0 {
			if err := rd.Discard(); err != nil {
				return nil, err
			}
			continue
		}
		return io.ReadAll(&rd)
	}
}

// handleControl answers pings and close frames. The reply is built in
// memory and written as one frame under the write lock.
func (c *wsConn) handleControl(h ws.Header, r io.Reader) error {
	var reply bytes.Buffer
	err := wsutil.ControlFrameHandler(&reply, ws.StateClientSide)(h, r)
	if reply.Len() > 0 {
		c.mu.Lock()
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
		_, werr := c.conn.Write(reply.Bytes())
		c.mu.Unlock()
		if err == nil {
			err = werr
		}
	}
	return err
}

func (c *wsConn) writeFrame(op ws.OpCode, p []byte, timeout time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	return wsutil.WriteClientMessage(c.conn, op, p)
}

func (c *wsConn) Write(data []byte) error {
	return c.writeFrame(ws.OpText, data, c.writeTimeout)
}

// Close sends a normal closure frame and closes the socket.
func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		_ = c.writeFrame(ws.OpClose, ws.NewCloseFrameBody(ws.StatusNormalClosure, ""), time.Second)
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}
