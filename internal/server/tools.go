package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func numberProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "number", "description": description}
}

func noArgs() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Image
		{
			Name: "viewer_load_image",
			Description: "Load an image into the viewer from a file path or inline base64 data. " +
				"Resets zoom, pan and selection. Without display_width/display_height the image " +
				"is laid out to fit the configured maximum display size.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
					"image_base64": map[string]interface{}{
						"type":        "string",
						"description": "Image bytes as base64 or a data: URL. Used when path is empty.",
					},
					"name": map[string]interface{}{
						"type":        "string",
						"description": "Display name for inline images",
					},
					"reload": map[string]interface{}{
						"type":        "boolean",
						"description": "Re-read path from disk instead of using the cached decode",
					},
					"display_width":  numberProp("Laid-out width in screen pixels before zoom"),
					"display_height": numberProp("Laid-out height in screen pixels before zoom"),
				},
			},
		},
		{
			Name:        "image_info",
			Description: "Get dimensions, format and size of an image file without loading it into the viewer.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
				},
				"required": []string{"path"},
			},
		},

		// Layout and input
		{
			Name:        "viewer_set_layout",
			Description: "Set the viewing surface's top-left in screen coordinates and, optionally, the size the image is laid out at. The selection is kept.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"origin_x":       numberProp("Surface left edge in screen pixels"),
					"origin_y":       numberProp("Surface top edge in screen pixels"),
					"display_width":  numberProp("Laid-out width in screen pixels before zoom"),
					"display_height": numberProp("Laid-out height in screen pixels before zoom"),
				},
			},
		},
		{
			Name: "viewer_pointer",
			Description: "Send a pointer event in screen coordinates. A primary-button down starts a selection, " +
				"or a pan when pan is true. Move updates the active gesture; up or leave ends it.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"action": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"down", "move", "up", "leave"},
						"description": "Pointer event kind",
					},
					"x": numberProp("Pointer X in screen pixels"),
					"y": numberProp("Pointer Y in screen pixels"),
					"button": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"primary", "middle", "secondary"},
						"description": "Button for down events. Default primary",
					},
					"pan": map[string]interface{}{
						"type":        "boolean",
						"description": "Pan modifier held (down events only)",
					},
				},
				"required": []string{"action"},
			},
		},
		{
			Name:        "viewer_wheel",
			Description: "Zoom around a screen point. Negative delta zooms in; -100 is one typical wheel notch (+0.1 zoom). Zoom is clamped to 0.2..10.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"x":     numberProp("Pointer X in screen pixels"),
					"y":     numberProp("Pointer Y in screen pixels"),
					"delta": numberProp("Vertical wheel delta"),
				},
				"required": []string{"x", "y", "delta"},
			},
		},
		{
			Name:        "viewer_reset_view",
			Description: "Reset zoom to 1 and pan to 0. The selection is kept.",
			InputSchema: noArgs(),
		},
		{
			Name:        "viewer_state",
			Description: "Get the current view, gesture, selection (display and native pixels), loaded image and last extraction result.",
			InputSchema: noArgs(),
		},

		// Output
		{
			Name:        "viewer_crop",
			Description: "Return the native pixels under the current selection as base64 JPEG.",
			InputSchema: noArgs(),
		},
		{
			Name:        "viewer_overlay",
			Description: "Return the full natural-size image with the current selection drawn on it, as base64 PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"color": map[string]interface{}{
						"type":        "string",
						"description": "Highlight color as #RGB, #RRGGBB or #RRGGBBAA. Default #FF0000",
					},
					"thickness": map[string]interface{}{
						"type":        "integer",
						"description": "Border thickness in native pixels. Default 2",
					},
					"label": map[string]interface{}{
						"type":        "boolean",
						"description": "Write the native rectangle next to the selection",
					},
				},
			},
		},
		{
			Name:        "viewer_extract_text",
			Description: "Crop the current selection at native resolution and recognize its text. Returns the text verbatim with line breaks preserved.",
			InputSchema: noArgs(),
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
