package presence

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kernoeb/telegram-macos-music-discord-presence/internal/domain"
	"go.uber.org/zap"
)

// IPC opcodes
const (
	opHandshake uint32 = 0
	opFrame     uint32 = 1
	opClose     uint32 = 2
)

const (
	dialTimeout  = 2 * time.Second
	ioTimeout    = 5 * time.Second
	maxFrameSize = 1 << 20
)

// Client speaks the Discord rich-presence IPC protocol over the local unix
// socket. All calls are serialized; SetActivity and ClearActivity silently
// succeed while disconnected, so a missing Discord never disturbs the
// polling loop.
type Client struct {
	logger   *zap.Logger
	clientID string

	mu        sync.Mutex
	conn      net.Conn
	connected bool
	events    chan bool
}

// NewClient creates a presence client for the configured application id
func NewClient(logger *zap.Logger, cfg domain.Config) domain.PresenceClient {
	return &Client{
		logger:   logger,
		clientID: cfg.ClientID(),
		events:   make(chan bool, 4),
	}
}

// Connect dials the IPC socket and performs the handshake.
// Idempotent while already connected.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return nil
	}

	conn, err := dialSocket()
	if err != nil {
		return fmt.Errorf("presence socket unavailable: %w", err)
	}

	handshake, err := json.Marshal(map[string]any{"v": 1, "client_id": c.clientID})
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to encode handshake: %w", err)
	}

	_ = conn.SetDeadline(time.Now().Add(ioTimeout))
	if err := writeFrame(conn, opHandshake, handshake); err != nil {
		conn.Close()
		return fmt.Errorf("handshake write failed: %w", err)
	}
	if _, _, err := readFrame(conn); err != nil {
		conn.Close()
		return fmt.Errorf("handshake read failed: %w", err)
	}
	_ = conn.SetDeadline(time.Time{})

	c.conn = conn
	c.connected = true
	c.notify(true)
	c.logger.Info("Connected to presence socket", zap.String("addr", conn.RemoteAddr().String()))
	return nil
}

// SetActivity pushes an activity. Skipped silently while disconnected.
func (c *Client) SetActivity(a domain.Activity) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return nil
	}
	return c.sendCommand(commandArgs{Pid: os.Getpid(), Activity: buildActivity(a)})
}

// ClearActivity removes the presence. Skipped silently while disconnected.
func (c *Client) ClearActivity() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return nil
	}
	return c.sendCommand(commandArgs{Pid: os.Getpid()})
}

// Close clears down the connection, sending a best-effort close frame
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return nil
	}

	_ = c.conn.SetDeadline(time.Now().Add(ioTimeout))
	_ = writeFrame(c.conn, opClose, []byte("{}"))
	err := c.conn.Close()
	c.conn = nil
	c.connected = false
	c.logger.Info("Presence connection closed")
	return err
}

// Connected reports the connectivity flag
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Events emits true on connect and false on connection loss
func (c *Client) Events() <-chan bool {
	return c.events
}

// sendCommand writes a SET_ACTIVITY frame and reads its response.
// Caller holds the mutex. Any IO failure drops the connection; the
// controller reconnects lazily on a later tick.
func (c *Client) sendCommand(args commandArgs) error {
	frame := commandFrame{
		Cmd:   "SET_ACTIVITY",
		Args:  args,
		Nonce: uuid.NewString(),
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("failed to encode command: %w", err)
	}

	_ = c.conn.SetDeadline(time.Now().Add(ioTimeout))
	defer func() {
		if c.conn != nil {
			_ = c.conn.SetDeadline(time.Time{})
		}
	}()

	if err := writeFrame(c.conn, opFrame, data); err != nil {
		c.dropLocked(err)
		return err
	}

	_, payload, err := readFrame(c.conn)
	if err != nil {
		c.dropLocked(err)
		return err
	}

	var resp struct {
		Evt  string `json:"evt"`
		Data struct {
			Message string `json:"message"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &resp); err == nil && resp.Evt == "ERROR" {
		c.logger.Warn("Presence command rejected", zap.String("message", resp.Data.Message))
	}
	return nil
}

// dropLocked marks the connection lost. Caller holds the mutex.
func (c *Client) dropLocked(cause error) {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.connected = false
	c.notify(false)
	c.logger.Warn("Presence connection lost", zap.Error(cause))
}

// notify emits a connectivity event without ever blocking the caller
func (c *Client) notify(connected bool) {
	select {
	case c.events <- connected:
	default:
	}
}

// dialSocket tries the conventional IPC socket locations in order
func dialSocket() (net.Conn, error) {
	var dirs []string
	for _, env := range []string{"XDG_RUNTIME_DIR", "TMPDIR", "TMP", "TEMP"} {
		if dir := os.Getenv(env); dir != "" {
			dirs = append(dirs, dir)
		}
	}
	dirs = append(dirs, "/tmp")

	var lastErr error
	for _, dir := range dirs {
		for i := 0; i < 10; i++ {
			path := filepath.Join(dir, fmt.Sprintf("discord-ipc-%d", i))
			conn, err := net.DialTimeout("unix", path, dialTimeout)
			if err == nil {
				return conn, nil
			}
			lastErr = err
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no candidate socket directories")
	}
	return nil, lastErr
}

func writeFrame(conn net.Conn, op uint32, payload []byte) error {
	header := make([]byte, 8)
	binary.LittleEndian.PutUint32(header[0:4], op)
	binary.LittleEndian.PutUint32(header[4:8], uint32(len(payload)))
	if _, err := conn.Write(header); err != nil {
		return err
	}
	_, err := conn.Write(payload)
	return err
}

func readFrame(conn net.Conn) (uint32, []byte, error) {
	header := make([]byte, 8)
	if _, err := io.ReadFull(conn, header); err != nil {
		return 0, nil, err
	}
	op := binary.LittleEndian.Uint32(header[0:4])
	length := binary.LittleEndian.Uint32(header[4:8])
	if length > maxFrameSize {
		return 0, nil, fmt.Errorf("oversized frame: %d bytes", length)
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(conn, payload); err != nil {
		return 0, nil, err
	}
	return op, payload, nil
}
