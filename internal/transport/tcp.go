package transport

import (
	"bufio"
	"context"
	"errors"
	"net"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// TCPConnection speaks the VT01-framed CM protocol over TCP.
type TCPConnection struct {
	id      string
	rawConn net.Conn
	reader  *bufio.Reader
	codec   *FrameCodec
	opts    Options
	log     *zap.Logger

	sendMsg chan []byte
	closed  atomic.Bool
	cancel  atomic.Pointer[context.CancelFunc]
}

func DialTCP(ctx context.Context, addr string, opt Options) (*TCPConnection, error) {
	var d net.Dialer
	c, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return NewTCPConnection(c, opt), nil
}

// NewTCPConnection wraps an established connection.
func NewTCPConnection(c net.Conn, opt Options) *TCPConnection {
	opt = opt.withDefaults()
	id := uuid.New().String()
	return &TCPConnection{
		id:      id,
		rawConn: c,
		reader:  bufio.NewReader(c),
		codec:   NewFrameCodec(opt.MaxFrameSize),
		opts:    opt,
		log:     opt.Logger.With(zap.String("conn", id), zap.String("transport", Tcp)),
		sendMsg: make(chan []byte, opt.OutBuffer),
	}
}

func (c *TCPConnection) ID() string           { return c.id }
func (c *TCPConnection) LocalAddr() net.Addr  { return c.rawConn.LocalAddr() }
func (c *TCPConnection) RemoteAddr() net.Addr { return c.rawConn.RemoteAddr() }

func (c *TCPConnection) Run(ctx context.Context, onPacket func([]byte)) error {
	c.log.Info("connection_established", zap.Stringer("addr", c.RemoteAddr()))

	ctx, cancel := context.WithCancel(ctx)
	c.cancel.Store(&cancel)
	group, child := errgroup.WithContext(ctx)

	group.Go(func() error {
		return c.readLoop(child, onPacket)
	})
	group.Go(func() error {
		return c.writeLoop(child)
	})
	// unblock a read stuck in the kernel once either loop exits
	group.Go(func() error {
		<-child.Done()
		c.closeConn()
		return nil
	})

	err := group.Wait()
	cancel()
	c.closeConn()

	if err != nil && !errors.Is(err, context.Canceled) {
		c.log.Info("connection_closed_with_error", zap.Error(err))
	} else {
		c.log.Info("connection_closed")
	}
	return err
}

func (c *TCPConnection) Send(packet []byte) error {
	if c.closed.Load() {
		return ErrConnectionClosed
	}
	if len(packet) > c.opts.MaxFrameSize {
		return ErrFrameTooLarge.withContext("%d bytes, limit %d", len(packet), c.opts.MaxFrameSize)
	}
	select {
	case c.sendMsg <- packet:
		return nil
	default:
		return ErrBufferFull
	}
}

// Close is safe to call multiple times.
func (c *TCPConnection) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	if cancel := c.cancel.Load(); cancel != nil {
		(*cancel)()
	}
	if err := c.rawConn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

func (c *TCPConnection) readLoop(ctx context.Context, onPacket func([]byte)) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if c.opts.ReadTimeout > 0 {
			_ = c.rawConn.SetReadDeadline(time.Now().Add(c.opts.ReadTimeout))
		}
		packet, err := c.codec.ReadFrame(c.reader)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		onPacket(packet)
	}
}

func (c *TCPConnection) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case data := <-c.sendMsg:
			if c.opts.WriteTimeout > 0 {
				_ = c.rawConn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			}
			if err := c.codec.WriteFrame(c.rawConn, data); err != nil {
				return err
			}
		}
	}
}

func (c *TCPConnection) closeConn() {
	c.closed.Store(true)
	_ = c.rawConn.Close()
}
