package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/loykin/srcdsmon/internal/config"
	"github.com/loykin/srcdsmon/internal/metrics"
	"github.com/loykin/srcdsmon/internal/supervisor"
)

// Controller is what the API needs from the supervisor.
type Controller interface {
	Status() supervisor.Status
	Restart() bool
	Config() *config.ServerConfig
	ShuttingDown() bool
}

// Router provides embeddable HTTP handlers for the supervised server.
// Endpoints:
//
//	GET  {basePath}/status   supervisor state, detectors and a resource sample
//	POST {basePath}/restart  same as the console "restart" command
//	GET  {basePath}/config   current startup script
//
// basePath may be empty or start with '/'; no trailing slash.
type Router struct {
	ctrl      Controller
	basePath  string
	detectors []string
	sample    func(ctx context.Context, pid int) (metrics.Resources, error)
	log       *slog.Logger
}

type RouterOption func(*Router)

// WithDetectors lists the active crash detectors in /status.
func WithDetectors(names []string) RouterOption {
	return func(r *Router) { r.detectors = append([]string(nil), names...) }
}

// WithSampler overrides the resource sampler used by /status.
func WithSampler(f func(ctx context.Context, pid int) (metrics.Resources, error)) RouterOption {
	return func(r *Router) { r.sample = f }
}

func NewRouter(ctrl Controller, basePath string, logger *slog.Logger, opts ...RouterOption) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{
		ctrl:     ctrl,
		basePath: sanitizeBase(basePath),
		sample:   metrics.SampleResources,
		log:      logger,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Handler returns an http.Handler powered by gin that can be mounted in any server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.GET("/status", r.handleStatus)
	group.POST("/restart", r.handleRestart)
	group.GET("/config", r.handleConfig)
	return g
}

// NewServer builds an HTTP server for the router. The caller owns ListenAndServe
// and Shutdown.
func NewServer(addr string, r *Router) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// --- Handlers ---

type errorResp struct {
	Error string `json:"error"`
}

type okResp struct {
	OK bool `json:"ok"`
}

type statusResp struct {
	supervisor.Status
	Detectors []string           `json:"detectors"`
	Resources *metrics.Resources `json:"resources,omitempty"`
}

type configResp struct {
	Params              []config.Param `json:"params"`
	Port                string         `json:"port"`
	LaunchOptions       []string       `json:"launch_options"`
	CrashRestartOptions []string       `json:"crash_restart_options"`
}

func (r *Router) handleStatus(c *gin.Context) {
	resp := statusResp{Status: r.ctrl.Status(), Detectors: nonNil(r.detectors)}
	if resp.PID > 0 && r.sample != nil {
		if res, err := r.sample(c.Request.Context(), resp.PID); err == nil {
			resp.Resources = &res
		} else {
			r.log.Debug("resource sample failed", "pid", resp.PID, "error", err)
		}
	}
	writeJSON(c, http.StatusOK, resp)
}

func (r *Router) handleRestart(c *gin.Context) {
	if r.ctrl.ShuttingDown() {
		writeJSON(c, http.StatusConflict, errorResp{Error: "shutting down"})
		return
	}
	r.log.Info("restart requested via api", "remote", c.ClientIP())
	if !r.ctrl.Restart() {
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: "server could not be started"})
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleConfig(c *gin.Context) {
	sc := r.ctrl.Config()
	if sc == nil {
		writeJSON(c, http.StatusNotFound, errorResp{Error: "no config loaded"})
		return
	}
	writeJSON(c, http.StatusOK, configResp{
		Params:              sc.Entries(),
		Port:                sc.Port(),
		LaunchOptions:       nonNil(sc.LaunchOptions),
		CrashRestartOptions: nonNil(sc.CrashRestartOptions),
	})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
