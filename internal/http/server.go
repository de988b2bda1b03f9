package http

import (
	"context"
	"log"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"reviewmonitor/internal/config"
	"reviewmonitor/internal/http/middleware"
	"reviewmonitor/internal/metrics"
	"reviewmonitor/internal/repository"
)

type Server struct{ e *echo.Echo }

// NewServer wires the ops endpoints: health, metrics, and read-only reports
// over event delivery state and recent remote failures. clickhouseDB may be
// nil; the remote-failures report then answers 503.
func NewServer(cfg config.Config, mysqlDB, clickhouseDB *sqlx.DB) *Server {
	eventsRepo := repository.NewEventRepository(mysqlDB)

	var callLogRepo repository.CallLogRepository
	if clickhouseDB != nil {
		callLogRepo = repository.NewCallLogRepository(clickhouseDB)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echoMid.Recover(), echoMid.Logger())

	metrics.MustRegister(prometheus.DefaultRegisterer)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// health
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	authMW := middleware.APIKeyMiddleware(cfg.HTTP.APIKey)

	v1 := e.Group("/v1", authMW)
	v1.GET("/reports/events", listEventsHandler(eventsRepo))
	v1.GET("/reports/remote-failures", listRemoteFailuresHandler(callLogRepo))

	return &Server{e: e}
}

func (s *Server) Start(addr string) error {
	log.Printf("http: listening on %s", addr)
	return s.e.Start(addr)
}
func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }
