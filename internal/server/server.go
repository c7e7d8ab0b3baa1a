package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/ocr-viewport/internal/imaging"
	"github.com/ironsheep/ocr-viewport/internal/viewer"
)

// DefaultMaxMessageBytes bounds a single JSON-RPC line. Inline images make
// requests much larger than plain tool calls.
const DefaultMaxMessageBytes = 32 << 20

// Server handles MCP protocol communication
type Server struct {
	session *viewer.Session
	cache   *imaging.ImageCache
	log     logrus.FieldLogger
	opts    Options
}

// Options configures a Server.
type Options struct {
	// Name and Version are reported in the initialize handshake.
	Name    string
	Version string
	// MaxMessageBytes bounds one request line. Zero means DefaultMaxMessageBytes.
	MaxMessageBytes int
	Logger          logrus.FieldLogger
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// JSON-RPC error codes used by the server.
const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeToolFailed     = -32000
)

// New creates a new MCP server around session. Images loaded by path are
// decoded through cache.
func New(session *viewer.Session, cache *imaging.ImageCache, opts Options) *Server {
	if opts.Name == "" {
		opts.Name = "ocr-viewport"
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	if opts.MaxMessageBytes <= 0 {
		opts.MaxMessageBytes = DefaultMaxMessageBytes
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if cache == nil {
		cache = imaging.NewImageCache(0)
	}
	return &Server{
		session: session,
		cache:   cache,
		log:     opts.Logger.WithField("component", "mcp"),
		opts:    opts,
	}
}

// Run serves on stdin and stdout until stdin closes.
func (s *Server) Run(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// Serve reads one JSON-RPC message per line from r and writes responses to w.
// It returns when r is exhausted or ctx is cancelled.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	lines, scanErr := s.readLines(ctx, r)
	encoder := json.NewEncoder(w)

	for {
		var line []byte
		select {
		case <-ctx.Done():
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				return <-scanErr
			}
			line = l
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.log.WithError(err).Warn("Failed to parse request")
			resp := errorResponse(nil, codeParseError, "Parse error", err.Error())
			if err := encoder.Encode(resp); err != nil {
				s.log.WithError(err).Error("Failed to encode response")
			}
			continue
		}

		resp := s.handleRequest(ctx, &req)
		if resp != nil {
			if err := encoder.Encode(resp); err != nil {
				s.log.WithError(err).Error("Failed to encode response")
			}
		}
	}
}

// readLines scans r in the background so Serve can stop on ctx while a read
// is blocked. Empty lines are skipped.
func (s *Server) readLines(ctx context.Context, r io.Reader) (<-chan []byte, <-chan error) {
	lines := make(chan []byte)
	errc := make(chan error, 1)

	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(r)
		// The scanner's limit is the larger of max and cap(buf).
		buf := make([]byte, 0, min(64*1024, s.opts.MaxMessageBytes))
		scanner.Buffer(buf, s.opts.MaxMessageBytes)

		for scanner.Scan() {
			if len(scanner.Bytes()) == 0 {
				continue
			}
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				errc <- nil
				return
			}
		}
		if err := scanner.Err(); err != nil {
			errc <- fmt.Errorf("scanner error: %w", err)
			return
		}
		errc <- nil
	}()

	return lines, errc
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(ctx context.Context, req *MCPRequest) *MCPResponse {
	s.log.WithFields(logrus.Fields{"method": req.Method, "id": req.ID}).Debug("Request")

	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	case "ping":
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		return errorResponse(req.ID, codeMethodNotFound, fmt.Sprintf("Method not found: %s", req.Method), nil)
	}
}

func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    s.opts.Name,
				"version": s.opts.Version,
			},
		},
	}
}

func errorResponse(id interface{}, code int, message string, data interface{}) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}
