package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/ocr-viewport/internal/imaging"
	"github.com/ironsheep/ocr-viewport/internal/logging"
	"github.com/ironsheep/ocr-viewport/internal/ocr"
	"github.com/ironsheep/ocr-viewport/internal/viewer"
	"github.com/ironsheep/ocr-viewport/internal/viewport"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestAPI(t *testing.T, ex ocr.Extractor, maxUpload int64) http.Handler {
	t.Helper()
	logger := logging.Discard()
	session := viewer.New(viewer.Options{Extractor: ex, Logger: logger})
	return New(session, Options{MaxUploadBytes: maxUpload, Version: "test", Logger: logger}).Handler()
}

func performRequest(r http.Handler, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func postJSON(r http.Handler, method, path string, v interface{}) *httptest.ResponseRecorder {
	body, _ := json.Marshal(v)
	return performRequest(r, method, path, bytes.NewReader(body), "application/json")
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{20, 20, 20, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func multipartUpload(t *testing.T, filename string, data []byte, fields map[string]string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body["error"]
}

// loadAndSelect uploads a 2000x1000 image laid out at 500x250 and drags from
// (10,20) to (40,60).
func loadAndSelect(t *testing.T, r http.Handler) {
	t.Helper()
	body, ct := multipartUpload(t, "page.png", pngBytes(t, 2000, 1000), map[string]string{
		"display_width": "500", "display_height": "250",
	})
	rec := performRequest(r, http.MethodPost, "/api/image", body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	for _, ev := range []map[string]interface{}{
		{"action": "down", "x": 10, "y": 20},
		{"action": "move", "x": 40, "y": 60},
		{"action": "up"},
	} {
		rec := postJSON(r, http.MethodPost, "/api/pointer", ev)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	r := newTestAPI(t, nil, 0)
	rec := performRequest(r, http.MethodGet, "/healthz", nil, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"version":"test"`)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestRequestID_Propagated(t *testing.T) {
	r := newTestAPI(t, nil, 0)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "trace-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "trace-123", rec.Header().Get(RequestIDHeader))
}

func TestUploadImage(t *testing.T) {
	r := newTestAPI(t, nil, 0)
	data := pngBytes(t, 40, 30)
	body, ct := multipartUpload(t, "scan.png", data, nil)

	rec := performRequest(r, http.MethodPost, "/api/image", body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var snap viewer.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.NotNil(t, snap.Image)
	assert.Equal(t, "scan.png", snap.Image.Name)
	assert.Equal(t, 40, snap.Image.Width)
	assert.Equal(t, int64(len(data)), snap.Image.SizeBytes)
}

func TestUploadImage_Errors(t *testing.T) {
	tests := []struct {
		name      string
		data      []byte
		fields    map[string]string
		maxUpload int64
		status    int
		contains  string
	}{
		{"not an image", []byte("%PDF-1.4 not an image"), nil, 0, http.StatusUnsupportedMediaType, "unsupported image format"},
		{"too large", bytes.Repeat([]byte{0xFF}, 4096), nil, 1024, http.StatusRequestEntityTooLarge, "1.0 KiB"},
		{"half display size", nil, map[string]string{"display_width": "100"}, 0, http.StatusBadRequest, "together"},
		{"bad display size", nil, map[string]string{"display_width": "wide", "display_height": "10"}, 0, http.StatusBadRequest, "display_width"},
		{"zero display size", nil, map[string]string{"display_width": "0", "display_height": "10"}, 0, http.StatusBadRequest, "invalid layout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestAPI(t, nil, tt.maxUpload)
			data := tt.data
			if data == nil {
				data = pngBytes(t, 8, 8)
			}
			body, ct := multipartUpload(t, "x.png", data, tt.fields)

			rec := performRequest(r, http.MethodPost, "/api/image", body, ct)
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, errorBody(t, rec), tt.contains)
		})
	}
}

func TestUploadImage_MissingFile(t *testing.T) {
	r := newTestAPI(t, nil, 0)
	rec := performRequest(r, http.MethodPost, "/api/image", strings.NewReader(""), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPointer_Validation(t *testing.T) {
	r := newTestAPI(t, nil, 0)

	rec := postJSON(r, http.MethodPost, "/api/pointer", map[string]interface{}{"action": "down"})
	assert.Equal(t, http.StatusConflict, rec.Code, "no image loaded")

	loadAndSelect(t, r)

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing action", map[string]interface{}{"x": 1}},
		{"unknown action", map[string]interface{}{"action": "tap"}},
		{"unknown button", map[string]interface{}{"action": "down", "button": "thumb"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(r, http.MethodPost, "/api/pointer", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestStateAfterSelection(t *testing.T) {
	r := newTestAPI(t, nil, 0)
	loadAndSelect(t, r)

	rec := performRequest(r, http.MethodGet, "/api/state", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var snap viewer.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.NotNil(t, snap.NativeSelection)
	assert.Equal(t, viewport.Rect{X: 40, Y: 80, Width: 120, Height: 160}, *snap.NativeSelection)
	assert.True(t, snap.CanExtract)
}

func TestWheelAndReset(t *testing.T) {
	r := newTestAPI(t, nil, 0)
	loadAndSelect(t, r)

	rec := postJSON(r, http.MethodPost, "/api/wheel", map[string]interface{}{"x": 0, "y": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "delta is required")

	rec = postJSON(r, http.MethodPost, "/api/wheel", map[string]interface{}{"x": 0, "y": 0, "delta": -1000})
	require.Equal(t, http.StatusOK, rec.Code)
	var snap viewer.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, 2.0, snap.View.Zoom)

	rec = performRequest(r, http.MethodPost, "/api/view/reset", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, 1.0, snap.View.Zoom)
	assert.NotNil(t, snap.Selection)
}

func TestLayout(t *testing.T) {
	r := newTestAPI(t, nil, 0)
	loadAndSelect(t, r)

	rec := postJSON(r, http.MethodPut, "/api/layout", map[string]interface{}{
		"origin_x": 10, "origin_y": 20, "display_width": 1000, "display_height": 500,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var snap viewer.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, viewport.Point{X: 10, Y: 20}, snap.Origin)
	assert.Equal(t, 60.0, snap.NativeSelection.Width)

	rec = postJSON(r, http.MethodPut, "/api/layout", map[string]interface{}{"display_width": 100})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(r, http.MethodPut, "/api/layout", map[string]interface{}{"display_width": -1, "display_height": 5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCrop(t *testing.T) {
	r := newTestAPI(t, nil, 0)

	rec := performRequest(r, http.MethodGet, "/api/crop", nil, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	loadAndSelect(t, r)
	rec = performRequest(r, http.MethodGet, "/api/crop", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "40,80,120,160", rec.Header().Get("X-Native-Rect"))

	img, err := jpeg.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 120, img.Bounds().Dx())
	assert.Equal(t, 160, img.Bounds().Dy())

	rec = performRequest(r, http.MethodGet, "/api/crop?format=json", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var crop imaging.CropResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &crop))
	assert.Equal(t, 120, crop.Width)
	assert.NotEmpty(t, crop.ImageBase64)
}

func TestOverlay(t *testing.T) {
	r := newTestAPI(t, nil, 0)
	loadAndSelect(t, r)

	rec := performRequest(r, http.MethodGet, "/api/overlay?color=%2300F&label=true", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	img, err := png.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 2000, img.Bounds().Dx())

	rec = performRequest(r, http.MethodGet, "/api/overlay?color=blue", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = performRequest(r, http.MethodGet, "/api/overlay?thickness=-3", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExtract(t *testing.T) {
	ex := ocr.ExtractorFunc(func(_ context.Context, req ocr.Request) (string, error) {
		return fmt.Sprintf("%d bytes\nof %s", len(req.Data), req.MimeType), nil
	})
	r := newTestAPI(t, ex, 0)
	loadAndSelect(t, r)

	rec := performRequest(r, http.MethodPost, "/api/extract", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res viewer.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Contains(t, res.Text, "\nof image/jpeg")
	assert.False(t, res.Stale)
}

func TestExtract_CarriesRequestID(t *testing.T) {
	var meta ocr.RequestMeta
	ex := ocr.ExtractorFunc(func(ctx context.Context, _ ocr.Request) (string, error) {
		meta = ocr.RequestMetaFromContext(ctx)
		return "text", nil
	})
	r := newTestAPI(t, ex, 0)
	loadAndSelect(t, r)

	req := httptest.NewRequest(http.MethodPost, "/api/extract", nil)
	req.Header.Set(RequestIDHeader, "trace-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "trace-123", meta.RequestID)
	assert.Equal(t, "page.png", meta.Source)
	assert.NotZero(t, meta.Generation)
}

func TestExtract_ErrorStatus(t *testing.T) {
	failing := ocr.ExtractorFunc(func(context.Context, ocr.Request) (string, error) {
		return "", errors.New("dial tcp: connection refused")
	})

	t.Run("service failure", func(t *testing.T) {
		r := newTestAPI(t, failing, 0)
		loadAndSelect(t, r)

		rec := performRequest(r, http.MethodPost, "/api/extract", nil, "")
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		msg := errorBody(t, rec)
		assert.Equal(t, ocr.ServiceErrorMessage, msg)
		assert.NotContains(t, msg, "connection refused")
	})

	t.Run("no selection", func(t *testing.T) {
		r := newTestAPI(t, failing, 0)
		rec := performRequest(r, http.MethodPost, "/api/extract", nil, "")
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("no backend", func(t *testing.T) {
		r := newTestAPI(t, nil, 0)
		rec := performRequest(r, http.MethodPost, "/api/extract", nil, "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestExtract_InFlight(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	ex := ocr.ExtractorFunc(func(context.Context, ocr.Request) (string, error) {
		close(started)
		<-release
		return "ok", nil
	})
	r := newTestAPI(t, ex, 0)
	loadAndSelect(t, r)

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		done <- performRequest(r, http.MethodPost, "/api/extract", nil, "")
	}()
	<-started

	rec := performRequest(r, http.MethodPost, "/api/extract", nil, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	close(release)
	first := <-done
	assert.Equal(t, http.StatusOK, first.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{viewer.ErrExtractionInFlight, http.StatusConflict},
		{fmt.Errorf("%w: %w", imaging.ErrInvalidSelection, viewer.ErrNoImage), http.StatusUnprocessableEntity},
		{viewer.ErrNoImage, http.StatusConflict},
		{imaging.ErrCanvasUnavailable, http.StatusServiceUnavailable},
		{ocr.WrapError("openai", errors.New("boom")), http.StatusBadGateway},
		{&http.MaxBytesError{Limit: 1}, http.StatusRequestEntityTooLarge},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
