package transport

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// WebSocketPath is where CMs accept WebSocket connections.
const WebSocketPath = "/cmsocket/"

// WebSocketConnection carries one CM packet per binary WebSocket message.
type WebSocketConnection struct {
	id   string
	conn *websocket.Conn
	opts Options
	log  *zap.Logger

	sendMsg chan []byte
	closed  atomic.Bool
	cancel  atomic.Pointer[context.CancelFunc]
}

// WebSocketURL expands a bare host:port into the CM socket URL. Full ws:// or
// wss:// URLs are returned unchanged.
func WebSocketURL(addr string) string {
	if strings.Contains(addr, "://") {
		return addr
	}
	return "wss://" + addr + WebSocketPath
}

func DialWebSocket(ctx context.Context, addr string, opt Options) (*WebSocketConnection, error) {
	dialer := websocket.Dialer{
		Proxy:            websocket.DefaultDialer.Proxy,
		HandshakeTimeout: 10 * time.Second,
		ReadBufferSize:   64 * 1024,
		WriteBufferSize:  64 * 1024,
	}
	conn, _, err := dialer.DialContext(ctx, WebSocketURL(addr), nil)
	if err != nil {
		return nil, err
	}
	return NewWebSocketConnection(conn, opt), nil
}

// NewWebSocketConnection wraps an established WebSocket.
func NewWebSocketConnection(conn *websocket.Conn, opt Options) *WebSocketConnection {
	opt = opt.withDefaults()
	conn.SetReadLimit(int64(opt.MaxFrameSize))
	id := uuid.New().String()
	return &WebSocketConnection{
		id:      id,
		conn:    conn,
		opts:    opt,
		log:     opt.Logger.With(zap.String("conn", id), zap.String("transport", WebSocket)),
		sendMsg: make(chan []byte, opt.OutBuffer),
	}
}

func (w *WebSocketConnection) ID() string           { return w.id }
func (w *WebSocketConnection) LocalAddr() net.Addr  { return w.conn.LocalAddr() }
func (w *WebSocketConnection) RemoteAddr() net.Addr { return w.conn.RemoteAddr() }

func (w *WebSocketConnection) Run(ctx context.Context, onPacket func([]byte)) error {
	w.log.Info("connection_established", zap.Stringer("addr", w.RemoteAddr()))

	ctx, cancel := context.WithCancel(ctx)
	w.cancel.Store(&cancel)
	group, child := errgroup.WithContext(ctx)

	group.Go(func() error { return w.readLoop(child, onPacket) })
	group.Go(func() error { return w.writeLoop(child) })
	group.Go(func() error {
		<-child.Done()
		w.closeConn()
		return nil
	})

	err := group.Wait()
	cancel()
	w.closeConn()

	if err != nil && !errors.Is(err, context.Canceled) {
		w.log.Info("connection_closed_with_error", zap.Error(err))
	} else {
		w.log.Info("connection_closed")
	}
	return err
}

func (w *WebSocketConnection) Send(packet []byte) error {
	if w.closed.Load() {
		return ErrConnectionClosed
	}
	if len(packet) > w.opts.MaxFrameSize {
		return ErrFrameTooLarge.withContext("%d bytes, limit %d", len(packet), w.opts.MaxFrameSize)
	}
	select {
	case w.sendMsg <- packet:
		return nil
	default:
		return ErrBufferFull
	}
}

func (w *WebSocketConnection) Close() error {
	if w.closed.Swap(true) {
		return nil
	}
	if cancel := w.cancel.Load(); cancel != nil {
		(*cancel)()
	}
	_ = w.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	if err := w.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

func (w *WebSocketConnection) readLoop(ctx context.Context, onPacket func([]byte)) error {
	for {
		if w.opts.ReadTimeout > 0 {
			_ = w.conn.SetReadDeadline(time.Now().Add(w.opts.ReadTimeout))
		}
		mt, data, err := w.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if mt != websocket.BinaryMessage {
			w.log.Debug("ignoring_non_binary_message", zap.Int("type", mt))
			continue
		}
		onPacket(data)
	}
}

func (w *WebSocketConnection) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case data := <-w.sendMsg:
			if w.opts.WriteTimeout > 0 {
				_ = w.conn.SetWriteDeadline(time.Now().Add(w.opts.WriteTimeout))
			}
			if err := w.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
				return err
			}
		}
	}
}

func (w *WebSocketConnection) closeConn() {
	w.closed.Store(true)
	_ = w.conn.Close()
}
