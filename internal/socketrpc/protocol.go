package socketrpc

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// JSON-RPC 2.0 Method Reference
//
// The socket RPC server exposes the hero banner (model.Remote) and, when
// analytics are enabled, model.StatsQuerier over a Unix domain socket.
//
//   Method              Params                              Result
//   ────────────────    ──────────────────────────────────   ─────────────────
//   Snapshot            (none)                              Snapshot
//   Slides              (none)                              []Slide
//   Next                (none)                              Snapshot
//   Previous            (none)                              Snapshot
//   GoTo                {Index: int}                        Snapshot
//   ImageReady          {Index: int}                        Snapshot
//   TouchStart          {X: float64}                        Snapshot
//   TouchEnd            {X: float64}                        Snapshot
//   SetPaused           {Reason: "hover"|"hidden", Paused}  Snapshot
//   Activate            (none)                              string (CTA target)
//   SlideStats          (none)                              []SlideStat
//   TotalImpressions    (none)                              int64
//
// Commands answer with the snapshot taken right after they ran so a client
// can redraw without a second round trip. Out-of-range indices are not an
// error; the state is returned unchanged.
//
// Error codes follow JSON-RPC 2.0:
//   -32700  Parse error (malformed JSON)
//   -32601  Method not found
//   -32602  Invalid params
//   -32603  Internal error (marshal failure)
//   -32000  Application error (banner closed, analytics disabled or query failure)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError represents a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string { return e.Message }

// DefaultSocketPath returns the default Unix socket path.
// It prefers $XDG_RUNTIME_DIR/hero/hero.sock, falling back to
// ~/.local/state/hero/hero.sock.
func DefaultSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "hero", "hero.sock")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "/tmp/hero.sock"
	}
	return filepath.Join(home, ".local", "state", "hero", "hero.sock")
}
