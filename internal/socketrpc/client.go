package socketrpc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/vsource/hero/internal/model"
)

var (
	_ model.Remote       = (*Client)(nil)
	_ model.StatsQuerier = (*Client)(nil)
)

// Client implements model.Remote and model.StatsQuerier over a Unix domain
// socket using JSON-RPC 2.0.
type Client struct {
	conn    net.Conn
	mu      sync.Mutex
	nextID  int
	scanner *bufio.Scanner
	encoder *json.Encoder
}

// Dial connects to the socket RPC server at the given path.
func Dial(socketPath string) (*Client, error) {
	conn, err := net.DialTimeout("unix", socketPath, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("socketrpc: dial: %w", err)
	}
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, scannerInitBufSize), scannerMaxTokenSize)
	return &Client{
		conn:    conn,
		scanner: scanner,
		encoder: json.NewEncoder(conn),
	}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// call performs a JSON-RPC call and unmarshals the result into dest.
func (c *Client) call(method string, params interface{}, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID

	paramsData, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("socketrpc: marshal params: %w", err)
	}

	req := Request{
		JSONRPC: "2.0",
		ID:      id,
		Method:  method,
		Params:  paramsData,
	}

	c.conn.SetDeadline(time.Now().Add(30 * time.Second))
	defer c.conn.SetDeadline(time.Time{})

	if err := c.encoder.Encode(req); err != nil {
		return fmt.Errorf("socketrpc: send: %w", err)
	}

	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return fmt.Errorf("socketrpc: read: %w", err)
		}
		return fmt.Errorf("socketrpc: connection closed")
	}

	var resp Response
	if err := json.Unmarshal(c.scanner.Bytes(), &resp); err != nil {
		return fmt.Errorf("socketrpc: unmarshal response: %w", err)
	}
	if resp.ID != id && resp.Error == nil {
		return fmt.Errorf("socketrpc: response id %d does not match request %d", resp.ID, id)
	}

	if resp.Error != nil {
		return resp.Error
	}

	if dest != nil {
		if err := json.Unmarshal(resp.Result, dest); err != nil {
			return fmt.Errorf("socketrpc: unmarshal result: %w", err)
		}
	}
	return nil
}

func (c *Client) Snapshot() (model.Snapshot, error) {
	var result model.Snapshot
	err := c.call("Snapshot", map[string]interface{}{}, &result)
	return result, err
}

func (c *Client) Slides() ([]model.Slide, error) {
	var result []model.Slide
	err := c.call("Slides", map[string]interface{}{}, &result)
	return result, err
}

func (c *Client) Next() error {
	return c.call("Next", map[string]interface{}{}, nil)
}

func (c *Client) Previous() error {
	return c.call("Previous", map[string]interface{}{}, nil)
}

func (c *Client) GoTo(index int) error {
	return c.call("GoTo", map[string]interface{}{"Index": index}, nil)
}

func (c *Client) ImageReady(index int) error {
	return c.call("ImageReady", map[string]interface{}{"Index": index}, nil)
}

func (c *Client) TouchStart(x float64) error {
	return c.call("TouchStart", map[string]interface{}{"X": x}, nil)
}

func (c *Client) TouchEnd(x float64) error {
	return c.call("TouchEnd", map[string]interface{}{"X": x}, nil)
}

func (c *Client) SetPaused(reason model.PauseReason, paused bool) error {
	return c.call("SetPaused", map[string]interface{}{"Reason": reason, "Paused": paused}, nil)
}

func (c *Client) Activate() (string, error) {
	var result string
	err := c.call("Activate", map[string]interface{}{}, &result)
	return result, err
}

func (c *Client) SlideStats() ([]model.SlideStat, error) {
	var result []model.SlideStat
	err := c.call("SlideStats", map[string]interface{}{}, &result)
	return result, err
}

func (c *Client) TotalImpressions() (int64, error) {
	var result int64
	err := c.call("TotalImpressions", map[string]interface{}{}, &result)
	return result, err
}
