package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/perentalassist/hub/internal/hub"
)

// Options configures the TCP listener.
type Options struct {
	Addr        string
	MaxConns    int64
	ReadTimeout time.Duration
}

// Server accepts persistent line-protocol connections and hands each one to
// the dispatcher. Admission is bounded: when MaxConns connections are live,
// further accepts wait instead of being refused, which mirrors a fixed-size
// worker pool with an unbounded accept backlog.
type Server struct {
	opts       Options
	dispatcher *Dispatcher
	hub        *hub.Hub
	log        zerolog.Logger

	readTimeout time.Duration
	sem         *semaphore.Weighted

	mu sync.Mutex
	ln net.Listener
	wg sync.WaitGroup
}

// New constructs the server.
func New(opts Options, d *Dispatcher, h *hub.Hub, logger zerolog.Logger) *Server {
	if opts.MaxConns <= 0 {
		opts.MaxConns = 50
	}
	return &Server{
		opts:        opts,
		dispatcher:  d,
		hub:         h,
		log:         logger.With().Str("component", "server").Logger(),
		readTimeout: opts.ReadTimeout,
		sem:         semaphore.NewWeighted(opts.MaxConns),
	}
}

// Start binds the listener and launches the accept loop. It returns once the
// listener is bound so callers can read Addr immediately.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.opts.Addr, err)
	}

	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	s.log.Info().
		Str("addr", ln.Addr().String()).
		Int64("max_conns", s.opts.MaxConns).
		Msg("listening")

	s.wg.Add(1)
	go s.acceptLoop(ctx, ln)
	return nil
}

// Addr reports the bound listener address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) {
	defer s.wg.Done()

	for {
		// Acquire before accepting so the pool bound also applies to the
		// listen queue rather than to already-accepted sockets.
		if err := s.sem.Acquire(ctx, 1); err != nil {
			return
		}

		nc, err := ln.Accept()
		if err != nil {
			s.sem.Release(1)
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Warn().Err(err).Msg("accept failed")
			continue
		}

		c := newConn(nc, s)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.sem.Release(1)
			c.serve(ctx)
		}()
	}
}

// Shutdown closes the listener and waits for in-flight connections to finish.
// Pass a cancelled ctx to Start's context first to unblock idle readers.
func (s *Server) Shutdown() {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()

	if ln != nil {
		_ = ln.Close()
	}
	s.wg.Wait()
	s.log.Info().Msg("server stopped")
}
