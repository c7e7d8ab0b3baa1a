package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/ocr-viewport/internal/gesture"
	"github.com/ironsheep/ocr-viewport/internal/imaging"
	"github.com/ironsheep/ocr-viewport/internal/ocr"
	"github.com/ironsheep/ocr-viewport/internal/viewer"
	"github.com/ironsheep/ocr-viewport/internal/viewport"
)

// errInvalidParams marks argument errors; they map to JSON-RPC -32602.
var errInvalidParams = errors.New("invalid params")

func invalidParams(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", errInvalidParams, fmt.Sprintf(format, args...))
}

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "viewer_pointer").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// imageResult is a tool result that carries an image. It is returned to the
// client as an MCP image content block followed by the JSON metadata.
type imageResult struct {
	meta     interface{}
	mimeType string
	data     []byte
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Argument errors return -32602. Tool failures return -32000 with the
// user-facing message in data; OCR failures also carry the underlying cause.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
	}

	logger := s.log.WithField("tool", params.Name)
	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		code, data := classifyError(err)
		logger.WithError(err).Warn("Tool call failed")
		if code == codeInvalidParams {
			return errorResponse(req.ID, code, "Invalid params", data)
		}
		return errorResponse(req.ID, code, "Tool execution failed", data)
	}
	logger.Debug("Tool call succeeded")

	var content []map[string]interface{}
	if img, ok := result.(*imageResult); ok {
		content = append(content, map[string]interface{}{
			"type":     "image",
			"data":     base64.StdEncoding.EncodeToString(img.data),
			"mimeType": img.mimeType,
		})
		result = img.meta
	}
	content = append(content, map[string]interface{}{
		"type": "text",
		"text": mustMarshalJSON(result),
	})

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  map[string]interface{}{"content": content},
	}
}

// classifyError picks the JSON-RPC code and error data for a tool failure.
func classifyError(err error) (int, interface{}) {
	if errors.Is(err, errInvalidParams) {
		return codeInvalidParams, err.Error()
	}
	var se *ocr.ServiceError
	if errors.As(err, &se) {
		return codeToolFailed, map[string]interface{}{
			"error":  se.Error(),
			"detail": se.Detail(),
		}
	}
	return codeToolFailed, err.Error()
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Image
	case "viewer_load_image":
		return s.handleLoadImage(args)
	case "image_info":
		return s.handleImageInfo(args)

	// Layout and input
	case "viewer_set_layout":
		return s.handleSetLayout(args)
	case "viewer_pointer":
		return s.handlePointer(args)
	case "viewer_wheel":
		return s.handleWheel(args)
	case "viewer_reset_view":
		return s.session.ResetView()
	case "viewer_state":
		return s.session.Snapshot(), nil

	// Output
	case "viewer_crop":
		return s.handleCrop()
	case "viewer_overlay":
		return s.handleOverlay(args)
	case "viewer_extract_text":
		return s.session.Extract(ctx)

	default:
		return nil, invalidParams("unknown tool: %s", name)
	}
}

// parseArgs unmarshals tool arguments. Missing arguments are an empty object.
func parseArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 || string(args) == "null" {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return invalidParams("%v", err)
	}
	return nil
}

// displaySize returns nil unless both dimensions were given.
func displaySize(w, h *float64) (*viewer.Size, error) {
	if w == nil && h == nil {
		return nil, nil
	}
	if w == nil || h == nil {
		return nil, invalidParams("display_width and display_height must be given together")
	}
	return &viewer.Size{Width: *w, Height: *h}, nil
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Image Handlers ===

func (s *Server) handleLoadImage(args json.RawMessage) (interface{}, error) {
	var p struct {
		Path          string   `json:"path"`
		ImageBase64   string   `json:"image_base64"`
		Name          string   `json:"name"`
		Reload        bool     `json:"reload"`
		DisplayWidth  *float64 `json:"display_width"`
		DisplayHeight *float64 `json:"display_height"`
	}
	if err := parseArgs(args, &p); err != nil {
		return nil, err
	}
	display, err := displaySize(p.DisplayWidth, p.DisplayHeight)
	if err != nil {
		return nil, err
	}

	var (
		decoded *imaging.Decoded
		name    string
		size    int64
	)
	switch {
	case p.Path != "":
		if p.Reload {
			s.cache.Evict(p.Path)
		}
		decoded, err = s.cache.Load(p.Path)
		if err != nil {
			return nil, err
		}
		stat, err := os.Stat(p.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat file: %w", err)
		}
		name, size = p.Path, stat.Size()
		if p.Name != "" {
			name = p.Name
		}

	case p.ImageBase64 != "":
		_, payload := imaging.SplitDataURL(p.ImageBase64)
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, invalidParams("image_base64: %v", err)
		}
		if _, err := imaging.Sniff(data); err != nil {
			return nil, invalidParams("image_base64: %v", err)
		}
		decoded, err = imaging.DecodeBytes(data)
		if err != nil {
			return nil, err
		}
		name, size = p.Name, int64(len(data))
		if name == "" {
			name = "inline." + decoded.Format
		}

	default:
		return nil, invalidParams("either path or image_base64 is required")
	}

	s.log.WithFields(logrus.Fields{"name": filepath.Base(name), "bytes": size}).Debug("Loading image")
	snap, err := s.session.LoadImage(decoded, name, size, display)
	if err != nil && p.Path != "" {
		// Keep the cache to images the viewer actually holds.
		s.cache.Evict(p.Path)
	}
	return snap, err
}

func (s *Server) handleImageInfo(args json.RawMessage) (interface{}, error) {
	var p struct {
		Path string `json:"path"`
	}
	if err := parseArgs(args, &p); err != nil {
		return nil, err
	}
	if p.Path == "" {
		return nil, invalidParams("path is required")
	}
	return imaging.LoadImageInfo(s.cache, p.Path)
}

// === Layout and Input Handlers ===

func (s *Server) handleSetLayout(args json.RawMessage) (interface{}, error) {
	var p struct {
		OriginX       float64  `json:"origin_x"`
		OriginY       float64  `json:"origin_y"`
		DisplayWidth  *float64 `json:"display_width"`
		DisplayHeight *float64 `json:"display_height"`
	}
	if err := parseArgs(args, &p); err != nil {
		return nil, err
	}
	display, err := displaySize(p.DisplayWidth, p.DisplayHeight)
	if err != nil {
		return nil, err
	}
	return s.session.SetLayout(viewport.Point{X: p.OriginX, Y: p.OriginY}, display)
}

func (s *Server) handlePointer(args json.RawMessage) (interface{}, error) {
	var p struct {
		Action string  `json:"action"`
		X      float64 `json:"x"`
		Y      float64 `json:"y"`
		Button string  `json:"button"`
		Pan    bool    `json:"pan"`
	}
	if err := parseArgs(args, &p); err != nil {
		return nil, err
	}
	pos := viewport.Point{X: p.X, Y: p.Y}

	switch p.Action {
	case "down":
		button, err := gesture.ParseButton(p.Button)
		if err != nil {
			return nil, invalidParams("%v", err)
		}
		return s.session.PointerDown(gesture.Pointer{Pos: pos, Button: button, Pan: p.Pan})
	case "move":
		return s.session.PointerMove(pos)
	case "up":
		return s.session.PointerUp()
	case "leave":
		return s.session.PointerLeave()
	default:
		return nil, invalidParams("action must be down, move, up or leave, got %q", p.Action)
	}
}

func (s *Server) handleWheel(args json.RawMessage) (interface{}, error) {
	var p struct {
		X     float64  `json:"x"`
		Y     float64  `json:"y"`
		Delta *float64 `json:"delta"`
	}
	if err := parseArgs(args, &p); err != nil {
		return nil, err
	}
	if p.Delta == nil {
		return nil, invalidParams("delta is required")
	}
	return s.session.Wheel(viewport.Point{X: p.X, Y: p.Y}, *p.Delta)
}

// === Output Handlers ===

func (s *Server) handleCrop() (interface{}, error) {
	crop, err := s.session.Crop()
	if err != nil {
		return nil, err
	}
	meta := *crop
	meta.ImageBase64 = ""
	return &imageResult{meta: meta, mimeType: crop.MimeType, data: crop.Data}, nil
}

func (s *Server) handleOverlay(args json.RawMessage) (interface{}, error) {
	var p struct {
		Color     string `json:"color"`
		Thickness int    `json:"thickness"`
		Label     bool   `json:"label"`
	}
	if err := parseArgs(args, &p); err != nil {
		return nil, err
	}
	if p.Color != "" {
		if _, _, err := imaging.ParseColor(p.Color); err != nil {
			return nil, invalidParams("%v", err)
		}
	}

	ov, err := s.session.Overlay(imaging.OverlayOptions{Color: p.Color, Thickness: p.Thickness, Label: p.Label})
	if err != nil {
		return nil, err
	}
	meta := *ov
	meta.ImageBase64 = ""
	return &imageResult{meta: meta, mimeType: ov.MimeType, data: ov.Data}, nil
}
