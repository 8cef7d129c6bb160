package main

import (
	"time"

	"github.com/mobby57/memoLib-sub019/internal/config"
	"github.com/mobby57/memoLib-sub019/internal/infrastructure"
)

// Server ties infrastructure, mounted modules and the listener together.
type Server struct {
	infra   *infrastructure.Infrastructure
	modules *Modules
	http    *httpServer
}

// NewServer wires every system from cfg. Nothing is started.
func NewServer(cfg *config.Config) (*Server, error) {
	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, err
	}
	modules, err := NewModules(infra, cfg)
	if err != nil {
		return nil, err
	}

	router := buildRouter(infra, cfg)
	modules.Mount(router)

	infra.Logger.Info("memolib configured",
		"version", cfg.Version,
		"env", cfg.Env(),
		"addr", cfg.Server.Addr(),
		"store", cfg.Store,
		"auth", cfg.Auth.Enabled(),
		"metrics", cfg.Metrics.On(),
	)

	return &Server{
		infra:   infra,
		modules: modules,
		http:    newHTTPServer(&cfg.Server, router, infra.Logger),
	}, nil
}

// Start registers lifecycle hooks, binds the listener, and logs readiness
// once startup hooks settle.
func (s *Server) Start() error {
	if err := s.infra.Start(); err != nil {
		return err
	}
	if err := s.http.Start(s.infra.Lifecycle); err != nil {
		return err
	}
	go s.reportReadiness()
	return nil
}

func (s *Server) reportReadiness() {
	lc := s.infra.Lifecycle
	lc.WaitForStartup()
	if pending := lc.NotReady(); len(pending) > 0 {
		s.infra.Logger.Warn("started with subsystems not ready", "not_ready", pending)
		return
	}
	s.infra.Logger.Info("all subsystems ready")
}

// Shutdown cancels the lifecycle and waits up to timeout for hooks to drain.
func (s *Server) Shutdown(timeout time.Duration) error {
	s.infra.Logger.Info("shutting down", "timeout", timeout)
	return s.infra.Lifecycle.Shutdown(timeout)
}
