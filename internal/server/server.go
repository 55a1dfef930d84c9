// Package server exposes the aggregation read-models over a localhost HTTP
// API for long-running embeddings of the service. The surface is read-only:
// all mutation goes through the CLI commands.
package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/bioself/bioself/internal/domain/dashboard"
	"github.com/bioself/bioself/internal/domain/timeline"
	"github.com/bioself/bioself/internal/record"
)

// GraphReader is the read-only slice of the store API the server needs.
type GraphReader interface {
	Get() (*record.Graph, error)
}

type Server struct {
	e      *echo.Echo
	store  GraphReader
	logger zerolog.Logger
}

func New(store GraphReader, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(recovery(logger))
	e.Use(requestID())
	e.Use(requestLogger(logger))

	s := &Server{e: e, store: store, logger: logger}

	e.GET("/health", s.health)
	api := e.Group("/api/v1")
	api.GET("/summary", s.getSummary)
	api.GET("/dashboard", s.getDashboard)
	api.GET("/timeline", s.getTimeline)

	return s
}

// Start blocks serving on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	err := s.e.Start(addr)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getSummary(c echo.Context) error {
	g, err := s.store.Get()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, dashboard.Summarize(g))
}

func (s *Server) getDashboard(c echo.Context) error {
	g, err := s.store.Get()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, dashboard.Build(g))
}

// getTimeline accepts ?types=lab,imaging&start=2024-01-01&end=2024-12-31.
func (s *Server) getTimeline(c echo.Context) error {
	var f timeline.Filter

	if raw := c.QueryParam("types"); raw != "" {
		types, err := parseTypes(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		f.Types = types
	}
	if raw := c.QueryParam("start"); raw != "" {
		t, err := record.ParseTime(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		f.Start = &t
	}
	if raw := c.QueryParam("end"); raw != "" {
		t, err := record.ParseTime(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		f.End = &t
	}

	g, err := s.store.Get()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	events := timeline.Assemble(g, f)
	return c.JSON(http.StatusOK, timeline.Data{Events: events, Total: len(events)})
}

func parseTypes(csv string) ([]timeline.EventType, error) {
	var types []timeline.EventType
	for _, part := range strings.Split(csv, ",") {
		t, err := timeline.ParseType(part)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, nil
}
