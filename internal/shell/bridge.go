// Package shell is the message-passing bridge to the out-of-process desktop
// shell. The wire format is one JSON object per line over a Unix domain
// socket; the daemon listens and the shell dials in. Everything outbound is
// fire-and-forget.
package shell

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/mindwell/companion/internal/domain"
)

// outMessage is one outbound command on the wire.
type outMessage struct {
	Channel string `json:"channel"`
	Payload any    `json:"payload,omitempty"`
}

// inMessage is one inbound event on the wire.
type inMessage struct {
	Event   string                   `json:"event"`
	Window  *domain.WindowDescriptor `json:"window,omitempty"`
	Usage   []domain.AppUsage        `json:"usage,omitempty"`
	AlertID string                   `json:"alertId,omitempty"`
	UserID  string                   `json:"userId,omitempty"`
}

// SocketBridge implements domain.ShellBridge over a Unix socket. One shell
// connection at a time; a new connection replaces the previous one.
type SocketBridge struct {
	logger   *zap.Logger
	listener net.Listener
	events   chan domain.ShellEvent

	mu   sync.Mutex
	conn net.Conn

	closeOnce sync.Once
	closed    chan struct{}
}

// NewSocketBridge listens on socketPath, removing any stale socket first.
func NewSocketBridge(socketPath string, logger *zap.Logger) (*SocketBridge, error) {
	_ = os.Remove(socketPath)
	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("listen on shell socket: %w", err)
	}
	b := &SocketBridge{
		logger:   logger,
		listener: ln,
		events:   make(chan domain.ShellEvent, 64),
		closed:   make(chan struct{}),
	}
	go b.acceptLoop()
	return b, nil
}

func (b *SocketBridge) acceptLoop() {
	for {
		conn, err := b.listener.Accept()
		if err != nil {
			select {
			case <-b.closed:
			default:
				b.logger.Warn("shell socket accept failed", zap.Error(err))
			}
			return
		}

		b.mu.Lock()
		if b.conn != nil {
			b.conn.Close()
		}
		b.conn = conn
		b.mu.Unlock()

		b.logger.Info("desktop shell connected")
		go b.readLoop(conn)
	}
}

func (b *SocketBridge) readLoop(conn net.Conn) {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		var msg inMessage
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			b.logger.Debug("unparseable shell message skipped", zap.Error(err))
			continue
		}

		ev := domain.ShellEvent{Name: msg.Event}
		switch msg.Event {
		case domain.EventActiveWindowChanged:
			ev.Window = msg.Window
		case domain.EventAppUsageUpdate:
			ev.Usage = msg.Usage
		case domain.EventPopupDismissed:
			ev.AlertID = msg.AlertID
		case domain.EventUserChanged:
			ev.UserID = msg.UserID
		default:
			b.logger.Debug("unknown shell event skipped", zap.String("event", msg.Event))
			continue
		}

		select {
		case b.events <- ev:
		case <-b.closed:
			return
		default:
			// Slow consumer: drop rather than block the shell.
			b.logger.Warn("shell event dropped, consumer behind",
				zap.String("event", msg.Event))
		}
	}

	b.mu.Lock()
	if b.conn == conn {
		b.conn = nil
		b.logger.Info("desktop shell disconnected")
	}
	b.mu.Unlock()
}

// Send posts one outbound command. No connected shell makes it a no-op.
func (b *SocketBridge) Send(channel string, payload any) error {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil {
		return nil
	}

	raw, err := json.Marshal(outMessage{Channel: channel, Payload: payload})
	if err != nil {
		return fmt.Errorf("encode shell command: %w", err)
	}
	raw = append(raw, '\n')
	if _, err := conn.Write(raw); err != nil {
		return fmt.Errorf("write shell command: %w", err)
	}
	return nil
}

// Events returns the inbound event stream.
func (b *SocketBridge) Events() <-chan domain.ShellEvent { return b.events }

// Available reports whether a shell is currently connected.
func (b *SocketBridge) Available() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil
}

// Close shuts the listener and any live connection.
func (b *SocketBridge) Close() error {
	var err error
	b.closeOnce.Do(func() {
		close(b.closed)
		err = b.listener.Close()
		b.mu.Lock()
		if b.conn != nil {
			b.conn.Close()
			b.conn = nil
		}
		b.mu.Unlock()
	})
	return err
}

var _ domain.ShellBridge = (*SocketBridge)(nil)

// NopBridge is the degraded-mode bridge used when no shell integration is
// configured: every command is a no-op and no events ever arrive. The
// features it would carry (tray icon, dimming, native popups) are simply
// unavailable.
type NopBridge struct {
	events chan domain.ShellEvent
}

// NewNopBridge creates a bridge that never delivers anything.
func NewNopBridge() *NopBridge {
	return &NopBridge{events: make(chan domain.ShellEvent)}
}

func (n *NopBridge) Send(string, any) error           { return nil }
func (n *NopBridge) Events() <-chan domain.ShellEvent { return n.events }
func (n *NopBridge) Available() bool                  { return false }
func (n *NopBridge) Close() error                     { return nil }

var _ domain.ShellBridge = (*NopBridge)(nil)
