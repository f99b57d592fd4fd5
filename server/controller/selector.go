package server

import (
	"context"
	"errors"
	"fmt"
	"go_verified_copy/fileio"
	"go_verified_copy/networking"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/ipv4"
)

// Options configure a receiving server
type Options struct {
	Root       string // Existing folder for received files
	ChunkSize  int    // Read and write granularity in bytes
	DSCP       int
	MPTCP      bool
	Factory    fileio.IOFactory
	Logger     *logrus.Logger
	OnProgress func(received, total uint64)
}

// errAccept marks failures of the listener itself rather than of a session
var errAccept = errors.New("accept failed")

const (
	minAcceptBackoff = 5 * time.Millisecond
	maxAcceptBackoff = time.Second
)

type Server struct {
	folder   string
	dscp     int
	mptcp    bool
	listener net.Listener
	handler  *Handler
	log      *logrus.Logger
}

// NewServer checks root folder and prepares session handler
func NewServer(opts Options) (*Server, error) {
	folder := filepath.Clean(opts.Root)

	// Check path validity.
	info, err := os.Stat(folder)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid root folder: %v", networking.ErrFileNotFound, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", networking.ErrFileNotFound, folder)
	}

	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	handler := NewHandler(folder, opts.ChunkSize, opts.Factory)
	handler.onProgress = opts.OnProgress

	return &Server{
		folder:  folder,
		dscp:    opts.DSCP,
		mptcp:   opts.MPTCP,
		handler: handler,
		log:     log,
	}, nil
}

// Listen binds new listening socket. The listener stays fixed until Close.
func (s *Server) Listen(ctx context.Context, addr string) error {
	if s.listener != nil {
		return fmt.Errorf("%w: already listening on %s", networking.ErrNetwork, s.listener.Addr())
	}
	if _, err := net.ResolveTCPAddr("tcp", addr); err != nil {
		return fmt.Errorf("%w: %v", networking.ErrNetwork, err)
	}

	lc := new(net.ListenConfig)
	// Set MPTCP.
	lc.SetMultipathTCP(s.mptcp)
	// Listen for incoming connections.
	l, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("%w: could not bind listening socket on %s: %v", networking.ErrNetwork, addr, err)
	}
	s.listener = l

	s.log.WithField("addr", l.Addr().String()).Info("Listening")
	return nil
}

// Addr returns bound listening address
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ServeOne accepts a single connection and runs one session on it. Cancelling
// ctx closes the listener while waiting and the connection while receiving, so
// a stalled peer cannot hold the server.
func (s *Server) ServeOne(ctx context.Context) (*Result, error) {
	if s.listener == nil {
		return nil, fmt.Errorf("%w: not listening", networking.ErrNetwork)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", networking.ErrNetwork, err)
	}

	s.log.Info("Waiting for connection")
	stopAccept := context.AfterFunc(ctx, func() {
		s.listener.Close()
	})
	conn, err := s.listener.Accept()
	stopAccept()
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %w", networking.ErrNetwork, errAccept, err)
	}
	defer conn.Close()

	// Unblocks any read in progress once ctx is done.
	stopSession := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer stopSession()

	if tcp, ok := conn.(*net.TCPConn); ok {
		// Set TCP_NODELAY to always immediately send.
		tcp.SetNoDelay(true)
	}

	log := s.log.WithFields(logrus.Fields{
		"session": uuid.New().String(),
		"remote":  conn.RemoteAddr().String(),
	})
	// Set DSCP. NOTE: On Windows by default it will not apply the value.
	if err := ipv4.NewConn(conn).SetTOS(s.dscp); err != nil {
		log.WithError(err).Debug("Could not set DSCP")
	}
	log.Info("Connection established")

	result, err := s.handler.Receive(conn, log)
	if err == nil {
		log.WithField("path", result.Path).Info("File saved")
	}
	return result, err
}

// Serve runs sessions one after another until ctx is done or listener closes.
// A failed session is logged and does not stop the loop. Listener failures
// are retried with growing delay.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		return fmt.Errorf("%w: not listening", networking.ErrNetwork)
	}

	var backoff time.Duration
	for {
		if ctx.Err() != nil {
			return nil
		}

		_, err := s.ServeOne(ctx)
		if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
			return nil
		}
		if !errors.Is(err, errAccept) {
			// Session errors were already logged by the handler.
			backoff = 0
			continue
		}

		if backoff == 0 {
			backoff = minAcceptBackoff
		} else if backoff *= 2; backoff > maxAcceptBackoff {
			backoff = maxAcceptBackoff
		}
		s.log.WithError(err).WithField("retry", backoff).Warn("Accept failed")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
	}
}

// Close closes the listening socket
func (s *Server) Close() error {
	if s.listener == nil {
		return nil
	}
	err := s.listener.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
