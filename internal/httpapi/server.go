// Package httpapi serves a viewer session over HTTP with gin.
//
// The API mirrors the MCP tools: a browser front end posts pointer and wheel
// events as they happen and asks for the crop, the overlay or the text of
// the current selection. All errors are JSON objects of the form
// {"error": "..."}.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/ocr-viewport/internal/viewer"
)

const shutdownTimeout = 10 * time.Second

// Options configures the HTTP API.
type Options struct {
	Addr string
	// MaxUploadBytes bounds an image upload. Zero means 10 MiB.
	MaxUploadBytes int64
	Version        string
	Logger         logrus.FieldLogger
}

// Server is the HTTP front end for one session.
type Server struct {
	session *viewer.Session
	opts    Options
	log     logrus.FieldLogger
	engine  *gin.Engine
}

// New builds the router. gin's mode is left to the caller.
func New(session *viewer.Session, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	s := &Server{
		session: session,
		opts:    opts,
		log:     opts.Logger.WithField("component", "http"),
	}

	r := gin.New()
	r.Use(requestID(), accessLog(s.log), gin.Recovery())
	s.setupRoutes(r)
	s.engine = r
	return s
}

func (s *Server) setupRoutes(r *gin.Engine) {
	r.GET("/healthz", s.healthHandler)

	api := r.Group("/api")
	api.POST("/image", s.uploadImageHandler)
	api.PUT("/layout", s.layoutHandler)
	api.POST("/pointer", s.pointerHandler)
	api.POST("/wheel", s.wheelHandler)
	api.POST("/view/reset", s.resetViewHandler)
	api.GET("/state", s.stateHandler)
	api.GET("/crop", s.cropHandler)
	api.GET("/overlay", s.overlayHandler)
	api.POST("/extract", s.extractHandler)
}

// Handler returns the router for use with httptest or a custom server.
func (s *Server) Handler() http.Handler { return s.engine }

// Run listens on Addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.opts.Addr).Info("HTTP API listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("Shutting down HTTP API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
