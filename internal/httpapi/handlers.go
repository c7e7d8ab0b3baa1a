package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"

	"github.com/ironsheep/ocr-viewport/internal/gesture"
	"github.com/ironsheep/ocr-viewport/internal/imaging"
	"github.com/ironsheep/ocr-viewport/internal/ocr"
	"github.com/ironsheep/ocr-viewport/internal/viewer"
	"github.com/ironsheep/ocr-viewport/internal/viewport"
)

// multipartOverhead is allowed on top of MaxUploadBytes for form framing.
const multipartOverhead = 64 << 10

// statusFor maps session and OCR errors to HTTP status codes.
func statusFor(err error) int {
	var se *ocr.ServiceError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, viewer.ErrExtractionInFlight):
		return http.StatusConflict
	case errors.Is(err, imaging.ErrInvalidSelection):
		return http.StatusUnprocessableEntity
	case errors.Is(err, viewer.ErrNoImage):
		return http.StatusConflict
	case errors.Is(err, viewer.ErrInvalidLayout):
		return http.StatusBadRequest
	case errors.Is(err, imaging.ErrCanvasUnavailable), errors.Is(err, viewer.ErrNoExtractor):
		return http.StatusServiceUnavailable
	case errors.Is(err, imaging.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &se):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError writes {"error": msg} and records err for the access log.
// ServiceError messages are already safe to show; the cause stays in the log.
func abortWithError(c *gin.Context, err error) {
	var se *ocr.ServiceError
	if errors.As(err, &se) {
		_ = c.Error(errors.New(se.Detail()))
	} else {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(statusFor(err), gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func respond(c *gin.Context, v interface{}, err error) {
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": s.opts.Version})
}

// uploadImageHandler accepts a multipart "file" field plus optional
// display_width and display_height form values.
func (s *Server) uploadImageHandler(c *gin.Context) {
	limit := s.opts.MaxUploadBytes
	tooLarge := fmt.Sprintf("image exceeds the %s upload limit", humanize.IBytes(uint64(limit)))

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartOverhead)

	fh, err := c.FormFile("file")
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": tooLarge})
			return
		}
		badRequest(c, fmt.Errorf("missing image file: %w", err))
		return
	}
	if fh.Size > limit {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": tooLarge})
		return
	}

	display, err := formDisplaySize(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	f, err := fh.Open()
	if err != nil {
		abortWithError(c, fmt.Errorf("failed to read upload: %w", err))
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		abortWithError(c, fmt.Errorf("failed to read upload: %w", err))
		return
	}
	if int64(len(data)) > limit {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": tooLarge})
		return
	}

	if _, err := imaging.Sniff(data); err != nil {
		abortWithError(c, err)
		return
	}
	decoded, err := imaging.DecodeBytes(data)
	if err != nil {
		badRequest(c, err)
		return
	}

	snap, err := s.session.LoadImage(decoded, filepath.Base(fh.Filename), int64(len(data)), display)
	respond(c, snap, err)
}

func formDisplaySize(c *gin.Context) (*viewer.Size, error) {
	ws, hs := c.PostForm("display_width"), c.PostForm("display_height")
	if ws == "" && hs == "" {
		return nil, nil
	}
	if ws == "" || hs == "" {
		return nil, errors.New("display_width and display_height must be given together")
	}
	w, err := strconv.ParseFloat(ws, 64)
	if err != nil {
		return nil, fmt.Errorf("display_width: %w", err)
	}
	h, err := strconv.ParseFloat(hs, 64)
	if err != nil {
		return nil, fmt.Errorf("display_height: %w", err)
	}
	return &viewer.Size{Width: w, Height: h}, nil
}

type layoutRequest struct {
	OriginX       float64  `json:"origin_x"`
	OriginY       float64  `json:"origin_y"`
	DisplayWidth  *float64 `json:"display_width" binding:"omitempty,gt=0"`
	DisplayHeight *float64 `json:"display_height" binding:"omitempty,gt=0"`
}

func (s *Server) layoutHandler(c *gin.Context) {
	var req layoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	var display *viewer.Size
	switch {
	case req.DisplayWidth != nil && req.DisplayHeight != nil:
		display = &viewer.Size{Width: *req.DisplayWidth, Height: *req.DisplayHeight}
	case req.DisplayWidth != nil || req.DisplayHeight != nil:
		badRequest(c, errors.New("display_width and display_height must be given together"))
		return
	}

	snap, err := s.session.SetLayout(viewport.Point{X: req.OriginX, Y: req.OriginY}, display)
	respond(c, snap, err)
}

type pointerRequest struct {
	Action string  `json:"action" binding:"required,oneof=down move up leave"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Button string  `json:"button"`
	Pan    bool    `json:"pan"`
}

func (s *Server) pointerHandler(c *gin.Context) {
	var req pointerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	pos := viewport.Point{X: req.X, Y: req.Y}

	var (
		snap viewer.Snapshot
		err  error
	)
	switch req.Action {
	case "down":
		button, perr := gesture.ParseButton(req.Button)
		if perr != nil {
			badRequest(c, perr)
			return
		}
		snap, err = s.session.PointerDown(gesture.Pointer{Pos: pos, Button: button, Pan: req.Pan})
	case "move":
		snap, err = s.session.PointerMove(pos)
	case "up":
		snap, err = s.session.PointerUp()
	case "leave":
		snap, err = s.session.PointerLeave()
	}
	respond(c, snap, err)
}

type wheelRequest struct {
	X     *float64 `json:"x" binding:"required"`
	Y     *float64 `json:"y" binding:"required"`
	Delta *float64 `json:"delta" binding:"required"`
}

func (s *Server) wheelHandler(c *gin.Context) {
	var req wheelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	snap, err := s.session.Wheel(viewport.Point{X: *req.X, Y: *req.Y}, *req.Delta)
	respond(c, snap, err)
}

func (s *Server) resetViewHandler(c *gin.Context) {
	snap, err := s.session.ResetView()
	respond(c, snap, err)
}

func (s *Server) stateHandler(c *gin.Context) {
	c.JSON(http.StatusOK, s.session.Snapshot())
}

// cropHandler returns the JPEG crop. With ?format=json it returns the crop
// metadata and base64 data instead.
func (s *Server) cropHandler(c *gin.Context) {
	crop, err := s.session.Crop()
	if err != nil {
		abortWithError(c, err)
		return
	}
	if c.Query("format") == "json" {
		c.JSON(http.StatusOK, crop)
		return
	}
	writeRect(c, crop.Rect)
	c.Data(http.StatusOK, crop.MimeType, crop.Data)
}

type overlayQuery struct {
	Color     string `form:"color"`
	Thickness int    `form:"thickness" binding:"gte=0,lte=100"`
	Label     bool   `form:"label"`
}

func (s *Server) overlayHandler(c *gin.Context) {
	var q overlayQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	if q.Color != "" {
		if _, _, err := imaging.ParseColor(q.Color); err != nil {
			badRequest(c, err)
			return
		}
	}

	ov, err := s.session.Overlay(imaging.OverlayOptions{Color: q.Color, Thickness: q.Thickness, Label: q.Label})
	if err != nil {
		abortWithError(c, err)
		return
	}
	writeRect(c, ov.Rect)
	c.Data(http.StatusOK, ov.MimeType, ov.Data)
}

func (s *Server) extractHandler(c *gin.Context) {
	ctx := ocr.WithRequestMeta(c.Request.Context(), ocr.RequestMeta{RequestID: c.GetString(requestIDKey)})
	res, err := s.session.Extract(ctx)
	respond(c, res, err)
}

// writeRect exposes the native crop rectangle to clients fetching raw images.
func writeRect(c *gin.Context, r viewport.Rect) {
	c.Header("X-Native-Rect", fmt.Sprintf("%g,%g,%g,%g", r.X, r.Y, r.Width, r.Height))
}
