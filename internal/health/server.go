// Package health exposes the liveness endpoint the hosting platform
// probes. It shares no state with the rest of the bot.
package health

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const body = "Hello World!"

type Server struct {
	echo *echo.Echo
	addr string
	log  zerolog.Logger
}

func NewServer(port int, log zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.GET("/", handleRoot)
	return &Server{echo: e, addr: fmt.Sprintf(":%d", port), log: log}
}

func handleRoot(c echo.Context) error {
	return c.String(http.StatusOK, body)
}

// Start listens until Shutdown is called. It returns nil on a clean
// shutdown.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.addr).Msg("health endpoint listening")
	if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
