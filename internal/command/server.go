package command

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"os"
	"time"

	"go.uber.org/zap"
)

const bufferSize = 1024

// Server accepts one client at a time and answers its requests until the
// client disconnects, goes idle or the context is cancelled.
type Server struct {
	addr        string
	handler     *Handler
	idleTimeout time.Duration
	log         *zap.SugaredLogger
}

// NewServer returns a Server for addr. An idle timeout of zero disables it.
func NewServer(addr string, h *Handler, idleTimeout time.Duration, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Server{addr: addr, handler: h, idleTimeout: idleTimeout, log: log}
}

// ListenAndServe listens on the configured address and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln sequentially. It closes ln on return.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer ln.Close()
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	s.log.Infow("command server listening", "addr", ln.Addr().String())
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.log.Infow("command server stopped")
				return nil
			}
			s.log.Warnw("accept failed", "error", err)
			continue
		}
		s.ServeConn(ctx, conn)
	}
}

// ServeConn answers requests on conn until it closes. Every read is split
// into lines and each non-blank line is one request, so clients that send a
// bare command without a newline are answered as well.
func (s *Server) ServeConn(ctx context.Context, conn net.Conn) {
	remote := conn.RemoteAddr().String()
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	s.log.Infow("client connected", "remote", remote)
	buf := make([]byte, bufferSize)
	for {
		if s.idleTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(s.idleTimeout))
		}
		n, err := conn.Read(buf)
		for _, line := range bytes.Split(buf[:n], []byte("\n")) {
			line = bytes.TrimSpace(line)
			if len(line) == 0 {
				continue
			}
			if werr := s.reply(conn, s.handler.Handle(string(line))); werr != nil {
				s.log.Warnw("response write failed", "remote", remote, "error", werr)
				return
			}
		}
		if err != nil {
			switch {
			case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed), ctx.Err() != nil:
				s.log.Infow("client disconnected", "remote", remote)
			case errors.Is(err, os.ErrDeadlineExceeded):
				s.log.Infow("client idle, closing", "remote", remote, "idle_timeout", s.idleTimeout)
			default:
				s.log.Warnw("read failed", "remote", remote, "error", err)
			}
			return
		}
	}
}

func (s *Server) reply(w io.Writer, resp Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}
