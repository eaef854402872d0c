package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"

	"yashubustudio/newscat/inference"
	"yashubustudio/newscat/internal/config"
	"yashubustudio/newscat/internal/logger"
)

// Predictor is the model surface the server needs.
type Predictor interface {
	Predict(ctx context.Context, docs []string) ([]inference.Prediction, error)
	Ready() bool
}

// Server exposes a Predictor over the model-server contract:
// GET /ping, POST /invocations and GET /metrics.
type Server struct {
	cfg       config.ServerConfig
	predictor Predictor
	log       logger.Logger
	metrics   *metrics
	engine    *gin.Engine
}

// defaultMaxBodyBytes applies when the configured limit is not positive.
const defaultMaxBodyBytes = 6 << 20

func New(cfg config.ServerConfig, p Predictor, log logger.Logger) *Server {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		cfg:       cfg,
		predictor: p,
		log:       logger.OrNop(log).With("component", "server"),
		metrics:   newMetrics(p),
	}
	engine := gin.New()
	engine.Use(gin.Recovery(), requestIDMiddleware(), accessLogMiddleware(s.log, s.metrics))
	engine.GET("/ping", s.handlePing)
	engine.POST("/invocations", s.handleInvocations)
	engine.GET("/metrics", gin.WrapH(s.metrics.handler()))
	s.engine = engine
	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves on cfg.Addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.engine,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx := context.WithoutCancel(ctx)
	if s.cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(shutdownCtx, s.cfg.ShutdownTimeout)
		defer cancel()
	}
	s.log.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

func (s *Server) handlePing(c *gin.Context) {
	if s.predictor == nil || !s.predictor.Ready() {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	c.Status(http.StatusOK)
}

func (s *Server) handleInvocations(c *gin.Context) {
	if s.predictor == nil || !s.predictor.Ready() {
		s.fail(c, http.StatusServiceUnavailable, inference.ErrModelClosed)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(c, http.StatusRequestEntityTooLarge, err)
			return
		}
		s.fail(c, http.StatusBadRequest, fmt.Errorf("read body: %w", err))
		return
	}

	docs, err := inference.DecodeRequest(body, c.ContentType())
	if err != nil {
		s.fail(c, decodeStatus(err), err)
		return
	}
	if s.cfg.MaxDocuments > 0 && len(docs) > s.cfg.MaxDocuments {
		s.fail(c, http.StatusRequestEntityTooLarge,
			fmt.Errorf("request has %d documents, limit is %d", len(docs), s.cfg.MaxDocuments))
		return
	}

	preds, err := s.predictor.Predict(c.Request.Context(), docs)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, inference.ErrModelClosed) {
			status = http.StatusServiceUnavailable
		}
		s.fail(c, status, err)
		return
	}
	s.metrics.documents.Add(float64(len(docs)))

	data, contentType, err := inference.EncodeResponse(preds, c.GetHeader("Accept"))
	if err != nil {
		s.fail(c, http.StatusNotAcceptable, err)
		return
	}
	c.Data(http.StatusOK, contentType, data)
}

func decodeStatus(err error) int {
	if errors.Is(err, inference.ErrUnsupportedContentType) {
		return http.StatusUnsupportedMediaType
	}
	return http.StatusBadRequest
}

func (s *Server) fail(c *gin.Context, status int, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{
		"error":      err.Error(),
		"request_id": requestID(c),
	})
}
