package server

import (
	"bufio"
	"context"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/perentalassist/hub/internal/observability"
	"github.com/perentalassist/hub/internal/protocol"
)

const (
	// sendQueueSize bounds the per-connection push queue. A recipient that
	// cannot drain it loses pushes instead of stalling the sender's request.
	sendQueueSize = 32
	// maxLineBytes bounds a single command line.
	maxLineBytes = 64 * 1024
	// writeTimeout bounds one socket write so a wedged peer cannot hold the
	// writer lock indefinitely.
	writeTimeout = 10 * time.Second
)

// conn owns one persistent client connection: the read loop, the serialized
// writer and the push queue. It satisfies hub.Client.
type conn struct {
	nc      net.Conn
	srv     *Server
	log     zerolog.Logger
	writeMu sync.Mutex
	send    chan string
	closed  chan struct{}
	once    sync.Once
	userID  uint
}

func newConn(nc net.Conn, srv *Server) *conn {
	return &conn{
		nc:     nc,
		srv:    srv,
		log:    srv.log.With().Str("remote", nc.RemoteAddr().String()).Logger(),
		send:   make(chan string, sendQueueSize),
		closed: make(chan struct{}),
	}
}

// Deliver queues a push line without blocking. Lines for slow clients are
// dropped; the client reconciles through fetch-since-id on its next request.
func (c *conn) Deliver(line string) {
	select {
	case c.send <- line:
	case <-c.closed:
	default:
		c.log.Warn().Msg("dropping push line for slow client")
	}
}

// writeLine sends one line, serialized against concurrent writers.
func (c *conn) writeLine(line string) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.nc.SetWriteDeadline(time.Now().Add(writeTimeout))
	if _, err := c.nc.Write([]byte(line + "\n")); err != nil {
		c.log.Debug().Err(err).Msg("write failed")
		c.close()
	}
}

// writer drains the push queue onto the socket.
func (c *conn) writer() {
	for {
		select {
		case line := <-c.send:
			c.writeLine(line)
		case <-c.closed:
			return
		}
	}
}

// serve runs the connection lifecycle: greeting, then one command per line
// until the peer disconnects, the read deadline expires or QUIT is received.
func (c *conn) serve(ctx context.Context) {
	defer c.close()

	observability.Connections().Inc()
	observability.ActiveConnections().Inc()
	defer observability.ActiveConnections().Dec()

	go c.writer()

	c.writeLine(protocol.Greeting)

	scanner := bufio.NewScanner(c.nc)
	scanner.Buffer(make([]byte, 0, 4096), maxLineBytes)

	for {
		// Refresh the idle deadline per command. Reclaiming abandoned
		// connections is a deliberate addition over the wire contract.
		if c.srv.readTimeout > 0 {
			_ = c.nc.SetReadDeadline(time.Now().Add(c.srv.readTimeout))
		}
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				c.log.Debug().Err(err).Msg("read loop ended")
			}
			return
		}

		line := scanner.Text()
		if line == "" {
			continue
		}

		if quit := c.srv.dispatcher.Dispatch(ctx, c, line); quit {
			return
		}
	}
}

// close tears the connection down exactly once and removes it from every hub
// topic so broadcasts stop reaching it.
func (c *conn) close() {
	c.once.Do(func() {
		close(c.closed)
		c.srv.hub.DropClient(c)
		_ = c.nc.Close()
		c.log.Debug().Msg("connection closed")
	})
}
