// Package server implements the MCP (Model Context Protocol) server for the
// OCR viewport.
//
// The server exposes one viewer session as a set of tools, so an agent can
// drive the same pan, zoom and selection model a pointer would, then read the
// text under the selection.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Image:
//   - viewer_load_image: Load from a path or inline base64, reset the view
//   - image_info: Describe a file without loading it into the viewer
//
// Layout and input (screen coordinates):
//   - viewer_set_layout: Surface origin and laid-out image size
//   - viewer_pointer: down, move, up and leave events
//   - viewer_wheel: Zoom anchored at the pointer
//   - viewer_reset_view: Zoom 1, no pan
//   - viewer_state: Current view, selection and last result
//
// Output:
//   - viewer_crop: Native pixels under the selection as JPEG
//   - viewer_overlay: Full image with the selection drawn, as PNG
//   - viewer_extract_text: OCR of the selection
//
// Crop and overlay results carry an MCP image content block followed by a
// text block with the JSON metadata.
//
// # Error Handling
//
// Bad arguments and unknown tools return -32602. Tool failures return -32000
// with the error message in data. OCR backend failures always report the
// same user-facing message, with the underlying cause under data.detail.
//
// Requests are handled one at a time in arrival order.
package server
