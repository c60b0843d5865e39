package socketrpc

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vsource/hero/internal/model"
	"go.uber.org/zap"
)

const (
	// scannerInitBufSize is the initial buffer size for the per-connection scanner (64 KB).
	scannerInitBufSize = 64 * 1024
	// scannerMaxTokenSize is the maximum token size the scanner will accept (1 MB).
	scannerMaxTokenSize = 1024 * 1024
)

var errAnalyticsDisabled = errors.New("analytics disabled")

// Server exposes the hero banner over a Unix domain socket using JSON-RPC 2.0.
type Server struct {
	socketPath string
	banner     model.Remote
	stats      model.StatsQuerier
	logger     *zap.Logger
	listener   net.Listener
	wg         sync.WaitGroup
	quit       chan struct{}
	stopOnce   sync.Once
}

// NewServer creates a new socket RPC server. stats may be nil.
func NewServer(socketPath string, banner model.Remote, stats model.StatsQuerier, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		socketPath: socketPath,
		banner:     banner,
		stats:      stats,
		logger:     logger.Named("socketrpc"),
		quit:       make(chan struct{}),
	}
}

// Start begins listening on the Unix socket and accepting connections.
func (s *Server) Start() error {
	if err := os.MkdirAll(filepath.Dir(s.socketPath), 0755); err != nil {
		return fmt.Errorf("socketrpc: mkdir: %w", err)
	}

	// Remove stale socket if it exists.
	if _, err := os.Stat(s.socketPath); err == nil {
		conn, dialErr := net.DialTimeout("unix", s.socketPath, 500*time.Millisecond)
		if dialErr != nil {
			// Socket file exists but nobody is listening.
			os.Remove(s.socketPath)
		} else {
			conn.Close()
			return fmt.Errorf("socketrpc: another server is already listening on %s", s.socketPath)
		}
	}

	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("socketrpc: listen: %w", err)
	}
	s.listener = ln

	s.wg.Add(1)
	go s.acceptLoop()

	s.logger.Info("listening", zap.String("socket", s.socketPath))
	return nil
}

// Stop closes the listener, waits for connections to drain, and removes the socket file.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.quit)
		if s.listener != nil {
			s.listener.Close()
		}
		s.wg.Wait()
		os.Remove(s.socketPath)
	})
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
				s.logger.Warn("accept error", zap.Error(err))
				continue
			}
		}
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	// Unblock the read below when the server stops.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-s.quit:
			conn.Close()
		case <-done:
		}
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, scannerInitBufSize), scannerMaxTokenSize)
	encoder := json.NewEncoder(conn)

	for scanner.Scan() {
		var req Request
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			resp := Response{JSONRPC: "2.0", ID: 0, Error: &RPCError{Code: -32700, Message: "parse error"}}
			encoder.Encode(resp)
			continue
		}

		resp := s.dispatch(req)
		if err := encoder.Encode(resp); err != nil {
			return
		}
	}
}

func (s *Server) dispatch(req Request) Response {
	resp := Response{JSONRPC: "2.0", ID: req.ID}

	marshalResult := func(v interface{}, err error) Response {
		if err != nil {
			resp.Error = &RPCError{Code: -32000, Message: err.Error()}
			return resp
		}
		data, merr := json.Marshal(v)
		if merr != nil {
			resp.Error = &RPCError{Code: -32603, Message: merr.Error()}
			return resp
		}
		resp.Result = data
		return resp
	}

	invalidParams := func(err error) Response {
		resp.Error = &RPCError{Code: -32602, Message: fmt.Sprintf("invalid params: %v", err)}
		return resp
	}

	// command runs a banner operation and answers with the resulting state.
	command := func(err error) Response {
		if err != nil {
			return marshalResult(nil, err)
		}
		return marshalResult(s.banner.Snapshot())
	}

	switch req.Method {
	case "Snapshot":
		return marshalResult(s.banner.Snapshot())

	case "Slides":
		return marshalResult(s.banner.Slides())

	case "Next":
		return command(s.banner.Next())

	case "Previous":
		return command(s.banner.Previous())

	case "GoTo", "ImageReady":
		var p struct{ Index *int }
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return invalidParams(err)
		}
		if p.Index == nil {
			return invalidParams(errors.New("index is required"))
		}
		if req.Method == "GoTo" {
			return command(s.banner.GoTo(*p.Index))
		}
		return command(s.banner.ImageReady(*p.Index))

	case "TouchStart", "TouchEnd":
		var p struct{ X *float64 }
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return invalidParams(err)
		}
		if p.X == nil {
			return invalidParams(errors.New("x is required"))
		}
		if req.Method == "TouchStart" {
			return command(s.banner.TouchStart(*p.X))
		}
		return command(s.banner.TouchEnd(*p.X))

	case "SetPaused":
		var p struct {
			Reason string
			Paused bool
		}
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return invalidParams(err)
		}
		reason, ok := model.ParsePauseReason(p.Reason)
		if !ok {
			return invalidParams(fmt.Errorf("unknown pause reason %q", p.Reason))
		}
		return command(s.banner.SetPaused(reason, p.Paused))

	case "Activate":
		return marshalResult(s.banner.Activate())

	case "SlideStats":
		if s.stats == nil {
			return marshalResult(nil, errAnalyticsDisabled)
		}
		return marshalResult(s.stats.SlideStats())

	case "TotalImpressions":
		if s.stats == nil {
			return marshalResult(nil, errAnalyticsDisabled)
		}
		return marshalResult(s.stats.TotalImpressions())

	default:
		resp.Error = &RPCError{Code: -32601, Message: fmt.Sprintf("method not found: %s", req.Method)}
		return resp
	}
}
