package server

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"log"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/atikulmunna/fleetwatch/internal/aggregator"
	"github.com/atikulmunna/fleetwatch/internal/model"
	"github.com/gin-gonic/gin"
)

//go:embed all:web
var webFS embed.FS

const shutdownTimeout = 5 * time.Second

// Controller drives the stream. The scheduler satisfies it.
type Controller interface {
	Start()
	Stop()
	Toggle() bool
	Frame() model.Frame
}

// Subscriber hands out frame subscriptions. The hub satisfies it.
type Subscriber interface {
	Subscribe() <-chan model.Frame
	Unsubscribe(sub <-chan model.Frame)
}

// StatsSource reports aggregated metrics.
type StatsSource interface {
	Snapshot() aggregator.Stats
}

// Options toggles optional routes.
type Options struct {
	Pprof bool
}

// Server holds the Gin engine and dependencies for the web dashboard.
type Server struct {
	engine *gin.Engine
	hub    Subscriber
	ctl    Controller
	stats  StatsSource
	port   string
	opts   Options
}

// New creates a web server for the fleet dashboard.
func New(h Subscriber, ctl Controller, stats StatsSource, port string, opts Options) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	// Disable automatic redirects that cause 301 issues.
	engine.RedirectTrailingSlash = false
	engine.RedirectFixedPath = false

	s := &Server{
		engine: engine,
		hub:    h,
		ctl:    ctl,
		stats:  stats,
		port:   port,
		opts:   opts,
	}

	s.setupRoutes()
	return s
}

// Handler exposes the routes, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// serveEmbedded reads a file from the embedded FS and writes it with the given content type.
func serveEmbedded(webContent fs.FS, name string, contentType string) gin.HandlerFunc {
	// Pre-read the file at startup so we don't read on every request.
	data, err := fs.ReadFile(webContent, name)
	return func(c *gin.Context) {
		if err != nil {
			c.String(http.StatusNotFound, "file not found: %s", name)
			return
		}
		c.Data(http.StatusOK, contentType, data)
	}
}

func (s *Server) setupRoutes() {
	webContent, _ := fs.Sub(webFS, "web")

	// Dashboard.
	s.engine.GET("/", serveEmbedded(webContent, "index.html", "text/html; charset=utf-8"))
	s.engine.GET("/style.css", serveEmbedded(webContent, "style.css", "text/css; charset=utf-8"))
	s.engine.GET("/app.js", serveEmbedded(webContent, "app.js", "application/javascript; charset=utf-8"))

	// Health check.
	s.engine.GET("/healthz", func(c *gin.Context) {
		stats := s.stats.Snapshot()
		c.JSON(http.StatusOK, gin.H{
			"status":         "ok",
			"uptime":         stats.Uptime,
			"running":        stats.Running,
			"ai_status":      stats.AIStatus,
			"eps":            stats.EPS,
			"dropped_frames": stats.DroppedFrames,
		})
	})

	api := s.engine.Group("/api")
	api.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.stats.Snapshot())
	})
	api.GET("/state", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.ctl.Frame())
	})
	api.POST("/toggle", s.control(func() { s.ctl.Toggle() }))
	api.POST("/start", s.control(s.ctl.Start))
	api.POST("/stop", s.control(s.ctl.Stop))

	// WebSocket.
	s.engine.GET("/ws", s.handleWebSocket)

	if s.opts.Pprof {
		s.engine.GET("/debug/pprof/", gin.WrapF(pprof.Index))
		s.engine.GET("/debug/pprof/cmdline", gin.WrapF(pprof.Cmdline))
		s.engine.GET("/debug/pprof/profile", gin.WrapF(pprof.Profile))
		s.engine.GET("/debug/pprof/symbol", gin.WrapF(pprof.Symbol))
		s.engine.GET("/debug/pprof/trace", gin.WrapF(pprof.Trace))
		s.engine.GET("/debug/pprof/allocs", gin.WrapH(pprof.Handler("allocs")))
		s.engine.GET("/debug/pprof/heap", gin.WrapH(pprof.Handler("heap")))
		s.engine.GET("/debug/pprof/goroutine", gin.WrapH(pprof.Handler("goroutine")))
	}
}

// control runs a state change and replies with the resulting frame.
func (s *Server) control(action func()) gin.HandlerFunc {
	return func(c *gin.Context) {
		action()
		frame := s.ctl.Frame()
		c.JSON(http.StatusOK, gin.H{"running": frame.Running, "frame": frame})
	}
}

// Start runs the server until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("server: dashboard listening on http://localhost:%s", s.port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
