// Package ipcserver serves sessiondex's channel catalog over a Unix
// domain socket: one JSON Request per line in, one JSON line out, the
// same catalog and dispatch the HTTP gateway uses.
package ipcserver

import (
	"bufio"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/sessiondex/sessiondex/internal/applog"
	"github.com/sessiondex/sessiondex/internal/httpapi"
	"github.com/sessiondex/sessiondex/internal/ipc"
)

// Dispatcher runs one channel call; satisfied by *httpapi.Server so the
// socket server and the HTTP gateway share one implementation of the
// channel catalog.
type Dispatcher interface {
	Dispatch(channel string, body []byte) (any, error)
}

// Server accepts connections on a Unix socket and serves each one a
// sequence of newline-delimited requests until the client disconnects.
type Server struct {
	socketPath string
	dispatcher Dispatcher
	listener   net.Listener
}

// New builds a Server bound to socketPath, not yet listening.
func New(socketPath string, dispatcher Dispatcher) *Server {
	return &Server{socketPath: socketPath, dispatcher: dispatcher}
}

// DefaultSocketPath returns the socket path sessiondexd listens on and
// sessiondex dials by default.
func DefaultSocketPath(dataDir string) string {
	return filepath.Join(dataDir, "sessiondex.sock")
}

// Available reports whether a server is currently listening at
// socketPath, by attempting (and immediately closing) a short-timeout
// dial.
func Available(socketPath string) bool {
	conn, err := net.DialTimeout("unix", socketPath, 500*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// ListenAndServe removes any stale socket file, listens, and serves
// connections until the listener is closed.
func (s *Server) ListenAndServe() error {
	if err := os.RemoveAll(s.socketPath); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.socketPath), 0o755); err != nil {
		return err
	}

	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return err
	}
	s.listener = ln

	applog.Log.Infof("ipcserver: listening on %s", s.socketPath)
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go s.serveConn(conn)
	}
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

func (s *Server) serveConn(conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	enc := json.NewEncoder(conn)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req ipc.Request
		if err := json.Unmarshal(line, &req); err != nil {
			writeErrorLine(enc, "invalid_request", err.Error())
			continue
		}

		resp, err := s.dispatcher.Dispatch(req.Channel, req.Payload)
		ipc.RecordOutcome(req.Channel, err)
		if err != nil {
			writeErrorLine(enc, "channel_failed", err.Error())
			continue
		}

		payload, err := json.Marshal(resp)
		if err != nil {
			writeErrorLine(enc, "encode_failed", err.Error())
			continue
		}
		if err := enc.Encode(ipc.Response{Payload: payload}); err != nil {
			applog.Log.Warnf("ipcserver: write response: %v", err)
			return
		}
	}
	if err := scanner.Err(); err != nil {
		applog.Log.Debugf("ipcserver: connection read error: %v", err)
	}
}

// wireError is the line written back for a failed dispatch, in place of
// a Response. A client tells the two apart by a non-empty "error" field.
type wireError struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeErrorLine(enc *json.Encoder, code, msg string) {
	if err := enc.Encode(wireError{Error: code, Message: msg}); err != nil {
		applog.Log.Warnf("ipcserver: write error response: %v", err)
	}
}

var _ Dispatcher = (*httpapi.Server)(nil)
