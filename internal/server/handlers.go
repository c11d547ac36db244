package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/phuslu/log"

	"MarketResearch/internal/recorder"
	"MarketResearch/internal/runner"
)

type runRequest struct {
	Tickers []string `json:"tickers" validate:"required,min=1,max=10,dive,ticker"`
	Hours   *int     `json:"hours" validate:"omitempty,min=1,max=168"`
}

type runResponse struct {
	RunID     string   `json:"run_id"`
	Artifacts []string `json:"artifacts"`
	Notes     []string `json:"notes"`
	Errors    []string `json:"errors"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) run(c *gin.Context) {
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	for i, t := range req.Tickers {
		req.Tickers[i] = strings.ToUpper(strings.TrimSpace(t))
	}
	if err := s.validate.Struct(req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	hours := runner.DefaultHours
	if req.Hours != nil {
		hours = *req.Hours
	}
	state, err := s.Runner.Run(c.Request.Context(), runner.Request{Tickers: req.Tickers, Hours: hours})
	if errors.Is(err, runner.ErrInvalidRequest) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		log.Error().Err(err).Strs("tickers", req.Tickers).Msg("run failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Agent execution failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, runResponse{
		RunID:     state.RunID,
		Artifacts: nonNil(state.Artifacts),
		Notes:     nonNil(state.Notes),
		Errors:    nonNil(state.ErrorStrings()),
	})
}

func (s *Server) getRun(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid run_id format: " + id})
		return
	}
	run, err := s.Recorder.GetRun(id)
	if errors.Is(err, recorder.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Run " + id + " not found"})
		return
	}
	if err != nil {
		log.Error().Err(err).Str("run_id", id).Msg("fetch run status")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch run status"})
		return
	}
	run.Errors = nonNil(run.Errors)
	run.Artifacts = nonNil(run.Artifacts)
	c.JSON(http.StatusOK, run)
}

func (s *Server) listReports(c *gin.Context) {
	reports, err := s.Recorder.ListReports(recorder.ReportFilter{
		Date: c.Query("date"),
		Path: c.Query("path"),
	})
	if err != nil {
		log.Error().Err(err).Msg("list reports")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list reports"})
		return
	}
	if reports == nil {
		c.JSON(http.StatusOK, []any{})
		return
	}
	c.JSON(http.StatusOK, reports)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
