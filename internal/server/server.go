package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/phuslu/log"

	"MarketResearch/internal/config"
	"MarketResearch/internal/recorder"
	"MarketResearch/internal/runner"
)

// Server exposes the research pipeline over HTTP.
type Server struct {
	Runner   *runner.Runner
	Recorder recorder.Recorder
	engine   *gin.Engine
	validate *validator.Validate
}

// newValidator registers the "ticker" rule used by request bodies and panics
// if registration fails.
func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("ticker", func(fl validator.FieldLevel) bool {
		return config.ValidTicker(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("register ticker validation: %v", err))
	}
	return v
}

// New builds the gin engine and its routes.
func New(r *runner.Runner, rec recorder.Recorder) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{Runner: r, Recorder: rec, engine: gin.New(), validate: newValidator()}
	s.engine.Use(gin.Recovery(), requestLogger())

	s.engine.GET("/health", s.health)
	s.engine.POST("/run", s.run)
	s.engine.GET("/runs/:id", s.getRun)
	s.engine.GET("/reports", s.listReports)
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info().Msg("shutting down http server")
		return srv.Shutdown(shutdownCtx)
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("http request")
	}
}
