package server

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/ironsheep/ocr-viewport/internal/imaging"
	"github.com/ironsheep/ocr-viewport/internal/logging"
	"github.com/ironsheep/ocr-viewport/internal/ocr"
	"github.com/ironsheep/ocr-viewport/internal/viewer"
)

// newTestServer returns a server whose session uses ex for extraction.
func newTestServer(t *testing.T, ex ocr.Extractor) *Server {
	t.Helper()
	logger := logging.Discard()
	session := viewer.New(viewer.Options{Extractor: ex, Logger: logger})
	return New(session, imaging.NewImageCache(4), Options{Version: "1.2.3", Logger: logger})
}

func TestNew(t *testing.T) {
	s := newTestServer(t, nil)
	if s.session == nil {
		t.Fatal("New() did not keep the session")
	}
	if s.cache == nil {
		t.Fatal("New() did not initialize cache")
	}
	if s.opts.MaxMessageBytes != DefaultMaxMessageBytes {
		t.Errorf("MaxMessageBytes: got %d, want %d", s.opts.MaxMessageBytes, DefaultMaxMessageBytes)
	}

	s = New(viewer.New(viewer.Options{Logger: logging.Discard()}), nil, Options{Logger: logging.Discard()})
	if s.cache == nil {
		t.Error("New() with nil cache should create one")
	}
}

func TestMCPRequest_Unmarshal(t *testing.T) {
	tests := []struct {
		name       string
		json       string
		wantID     interface{}
		wantMethod string
	}{
		{"string id", `{"jsonrpc":"2.0","id":"test-1","method":"tools/list"}`, "test-1", "tools/list"},
		{"number id", `{"jsonrpc":"2.0","id":42,"method":"ping"}`, float64(42), "ping"},
		{"null id", `{"jsonrpc":"2.0","id":null,"method":"initialize"}`, nil, "initialize"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req MCPRequest
			if err := json.Unmarshal([]byte(tt.json), &req); err != nil {
				t.Fatalf("Failed to unmarshal: %v", err)
			}
			if req.ID != tt.wantID {
				t.Errorf("ID: got %v (%T), want %v (%T)", req.ID, req.ID, tt.wantID, tt.wantID)
			}
			if req.Method != tt.wantMethod {
				t.Errorf("Method: got %s, want %s", req.Method, tt.wantMethod)
			}
		})
	}
}

func TestHandleRequest_Initialize(t *testing.T) {
	s := newTestServer(t, nil)
	resp := s.handleRequest(context.Background(), &MCPRequest{JSONRPC: "2.0", ID: 1, Method: "initialize"})

	if resp == nil || resp.Error != nil {
		t.Fatalf("Unexpected response: %+v", resp)
	}
	result := resp.Result.(map[string]interface{})
	if result["protocolVersion"] != "2024-11-05" {
		t.Errorf("protocolVersion: got %v", result["protocolVersion"])
	}
	serverInfo := result["serverInfo"].(map[string]interface{})
	if serverInfo["name"] != "ocr-viewport" {
		t.Errorf("serverInfo.name: got %v", serverInfo["name"])
	}
	if serverInfo["version"] != "1.2.3" {
		t.Errorf("serverInfo.version: got %v", serverInfo["version"])
	}
}

func TestHandleRequest_Ping(t *testing.T) {
	s := newTestServer(t, nil)
	resp := s.handleRequest(context.Background(), &MCPRequest{JSONRPC: "2.0", ID: "ping-1", Method: "ping"})

	if resp == nil || resp.Error != nil {
		t.Fatalf("Unexpected response: %+v", resp)
	}
	if resp.ID != "ping-1" {
		t.Errorf("ID: got %v, want ping-1", resp.ID)
	}
}

func TestHandleRequest_ToolsList(t *testing.T) {
	s := newTestServer(t, nil)
	resp := s.handleRequest(context.Background(), &MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/list"})

	if resp == nil || resp.Error != nil {
		t.Fatalf("Unexpected response: %+v", resp)
	}
	tools, ok := resp.Result.(map[string]interface{})["tools"].([]Tool)
	if !ok {
		t.Fatal("tools should be a slice of Tool")
	}
	if len(tools) != len(GetToolDefinitions()) {
		t.Errorf("Expected %d tools, got %d", len(GetToolDefinitions()), len(tools))
	}
}

func TestHandleRequest_NotificationsInitialized(t *testing.T) {
	s := newTestServer(t, nil)
	resp := s.handleRequest(context.Background(), &MCPRequest{JSONRPC: "2.0", Method: "notifications/initialized"})
	if resp != nil {
		t.Error("notifications/initialized should return nil response")
	}
}

func TestHandleRequest_MethodNotFound(t *testing.T) {
	s := newTestServer(t, nil)
	resp := s.handleRequest(context.Background(), &MCPRequest{JSONRPC: "2.0", ID: 1, Method: "nonexistent/method"})

	if resp == nil || resp.Error == nil {
		t.Fatal("Expected error for unknown method")
	}
	if resp.Error.Code != -32601 {
		t.Errorf("Error code: got %d, want -32601", resp.Error.Code)
	}
}

func TestServe(t *testing.T) {
	s := newTestServer(t, nil)

	in := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize"}`,
		``,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`not json`,
		`{"jsonrpc":"2.0","id":2,"method":"ping"}`,
	}, "\n")
	var out bytes.Buffer

	if err := s.Serve(context.Background(), strings.NewReader(in), &out); err != nil {
		t.Fatalf("Serve() error: %v", err)
	}

	dec := json.NewDecoder(&out)
	var responses []MCPResponse
	for dec.More() {
		var resp MCPResponse
		if err := dec.Decode(&resp); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		responses = append(responses, resp)
	}

	// initialize, parse error, ping; the notification gets no reply.
	if len(responses) != 3 {
		t.Fatalf("Got %d responses, want 3", len(responses))
	}
	if responses[0].ID != float64(1) {
		t.Errorf("first response ID: got %v, want 1", responses[0].ID)
	}
	if responses[1].Error == nil || responses[1].Error.Code != -32700 {
		t.Errorf("second response should be a parse error, got %+v", responses[1])
	}
	if responses[2].ID != float64(2) || responses[2].Error != nil {
		t.Errorf("third response should answer ping, got %+v", responses[2])
	}
}

func TestServe_CancelledContext(t *testing.T) {
	s := newTestServer(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	err := s.Serve(ctx, strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`+"\n"), &out)
	if err != context.Canceled {
		t.Errorf("Serve() error: got %v, want context.Canceled", err)
	}
	if out.Len() != 0 {
		t.Errorf("Serve() wrote %q after cancellation", out.String())
	}
}

func TestServe_LineTooLong(t *testing.T) {
	logger := logging.Discard()
	s := New(viewer.New(viewer.Options{Logger: logger}), nil, Options{MaxMessageBytes: 16, Logger: logger})

	var out bytes.Buffer
	err := s.Serve(context.Background(), strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`+"\n"), &out)
	if err == nil {
		t.Error("Serve() should fail on a line over MaxMessageBytes")
	}
}
