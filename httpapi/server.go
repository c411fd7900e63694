// Package httpapi exposes the codec and a journal over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/unkn0wn-root/pitradio"
	c "github.com/unkn0wn-root/pitradio/codec"
	"github.com/unkn0wn-root/pitradio/internal/wire"
)

type JSON = map[string]any

type Options struct {
	Logger    pitradio.Logger
	BodyLimit string              // echo size string, e.g. "1M"; "" => 1M
	Gatherer  prometheus.Gatherer // non-nil mounts GET /metrics
}

type Server struct {
	e   *echo.Echo
	j   pitradio.Journal
	log pitradio.Logger
}

func New(j pitradio.Journal, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = pitradio.NopLogger{}
	}
	if opts.BodyLimit == "" {
		opts.BodyLimit = "1M"
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(opts.BodyLimit))

	s := &Server{e: e, j: j, log: opts.Logger}
	e.Use(s.accessLog)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, JSON{"status": "ok", "journal": j.Enabled()})
	})
	if opts.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := e.Group("/v1")
	v1.POST("/encode", s.encode)
	v1.POST("/decode", s.decode)
	v1.POST("/transmissions", s.transmit)
	v1.GET("/transmissions", s.replay)
	v1.GET("/transmissions/:seq", s.receive)
	v1.GET("/archive", s.export)
	v1.POST("/archive", s.importArchive)
	return s
}

func (s *Server) Handler() http.Handler { return s.e }

func (s *Server) Start(addr string) error {
	s.log.Info("http api listening", pitradio.Fields{"addr": addr})
	err := s.e.Start(addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }

func (s *Server) accessLog(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		s.log.Debug("http request", pitradio.Fields{
			"method":  c.Request().Method,
			"path":    c.Path(),
			"status":  c.Response().Status,
			"latency": time.Since(start).String(),
		})
		return nil
	}
}

// transmission is the wire view of a Transmission, commands included.
type transmission struct {
	ID       string    `json:"id"`
	Seq      uint64    `json:"seq"`
	SentAt   time.Time `json:"sent_at"`
	Frames   string    `json:"frames"`
	Commands []string  `json:"commands"`
}

func view(tx pitradio.Transmission) transmission {
	return transmission{ID: tx.ID, Seq: tx.Seq, SentAt: tx.SentAt, Frames: tx.Frames, Commands: tx.Commands}
}

func readCommands(ec echo.Context) ([]string, error) {
	var v any
	if err := json.NewDecoder(ec.Request().Body).Decode(&v); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "body must be a JSON array of strings")
	}
	return c.Commands(v)
}

func (s *Server) encode(ctx echo.Context) error {
	cmds, err := readCommands(ctx)
	if err != nil {
		return s.fail(ctx, err)
	}
	frames, err := c.Encode(cmds)
	if err != nil {
		return s.fail(ctx, err)
	}
	return ctx.String(http.StatusOK, frames)
}

func (s *Server) decode(ctx echo.Context) error {
	body, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return err
	}
	cmds, err := c.DecodeBytes(body)
	if err != nil {
		return s.fail(ctx, err)
	}
	return ctx.JSON(http.StatusOK, cmds)
}

func (s *Server) transmit(ctx echo.Context) error {
	cmds, err := readCommands(ctx)
	if err != nil {
		return s.fail(ctx, err)
	}
	tx, err := s.j.Transmit(ctx.Request().Context(), cmds)
	if err != nil {
		return s.fail(ctx, err)
	}
	return ctx.JSON(http.StatusCreated, view(tx))
}

func (s *Server) receive(ctx echo.Context) error {
	seq, err := strconv.ParseUint(ctx.Param("seq"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "seq must be an unsigned integer")
	}
	tx, ok, err := s.j.Receive(ctx.Request().Context(), seq)
	if err != nil {
		return s.fail(ctx, err)
	}
	if !ok {
		return ctx.JSON(http.StatusNotFound, JSON{"error": "transmission not found", "seq": seq})
	}
	return ctx.JSON(http.StatusOK, view(tx))
}

func rangeParams(ctx echo.Context) (uint64, uint64, error) {
	from, err := strconv.ParseUint(ctx.QueryParam("from"), 10, 64)
	if err != nil {
		return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "from must be an unsigned integer")
	}
	to, err := strconv.ParseUint(ctx.QueryParam("to"), 10, 64)
	if err != nil {
		return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "to must be an unsigned integer")
	}
	return from, to, nil
}

func (s *Server) replay(ctx echo.Context) error {
	from, to, err := rangeParams(ctx)
	if err != nil {
		return err
	}
	txs, missing, err := s.j.Replay(ctx.Request().Context(), from, to)
	if err != nil {
		return s.fail(ctx, err)
	}
	out := make([]transmission, 0, len(txs))
	for _, tx := range txs {
		out = append(out, view(tx))
	}
	if missing == nil {
		missing = []uint64{}
	}
	return ctx.JSON(http.StatusOK, JSON{"transmissions": out, "missing": missing})
}

func (s *Server) export(ctx echo.Context) error {
	from, to, err := rangeParams(ctx)
	if err != nil {
		return err
	}
	blob, err := s.j.Export(ctx.Request().Context(), from, to)
	if err != nil {
		return s.fail(ctx, err)
	}
	return ctx.Blob(http.StatusOK, echo.MIMEOctetStream, blob)
}

func (s *Server) importArchive(ctx echo.Context) error {
	body, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return err
	}
	n, err := s.j.Import(ctx.Request().Context(), body)
	if err != nil {
		return s.fail(ctx, err)
	}
	return ctx.JSON(http.StatusOK, JSON{"imported": n})
}

// fail maps codec and journal errors to status codes.
func (s *Server) fail(ctx echo.Context, err error) error {
	var (
		he *echo.HTTPError
		re *pitradio.ReceiveError
		de *c.DecodingError
		ee *c.EncodingError
	)
	switch {
	case errors.As(err, &he):
		return he
	case errors.As(err, &re):
		s.log.Warn("stored transmission unreadable", pitradio.Fields{"seq": re.Seq, "err": err})
		return ctx.JSON(http.StatusInternalServerError, JSON{"error": err.Error(), "kind": kindOf(re.DecodeErr)})
	case errors.Is(err, c.ErrPayloadTooLarge):
		return ctx.JSON(http.StatusRequestEntityTooLarge, JSON{"error": err.Error(), "kind": "payload_too_large"})
	case errors.As(err, &de):
		return ctx.JSON(http.StatusBadRequest, JSON{"error": err.Error(), "kind": de.Kind.String()})
	case errors.As(err, &ee):
		return ctx.JSON(http.StatusBadRequest, JSON{"error": err.Error(), "kind": "encoding"})
	case errors.Is(err, wire.ErrCorrupt):
		return ctx.JSON(http.StatusBadRequest, JSON{"error": err.Error(), "kind": "corrupt_archive"})
	case errors.Is(err, pitradio.ErrInvalidRange):
		return ctx.JSON(http.StatusBadRequest, JSON{"error": err.Error(), "kind": "invalid_range"})
	case errors.Is(err, pitradio.ErrRejected):
		return ctx.JSON(http.StatusServiceUnavailable, JSON{"error": err.Error(), "kind": "rejected"})
	default:
		s.log.Error("request failed", pitradio.Fields{"path": ctx.Path(), "err": err})
		return ctx.JSON(http.StatusInternalServerError, JSON{"error": err.Error()})
	}
}

func kindOf(err error) string {
	var de *c.DecodingError
	if errors.As(err, &de) {
		return de.Kind.String()
	}
	if errors.Is(err, c.ErrPayloadTooLarge) {
		return "payload_too_large"
	}
	return "unknown"
}
