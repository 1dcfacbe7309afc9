package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Server exposes the registered collectors on /metrics. It implements app.Dependency.
type Server struct {
	address  string
	server   *http.Server
	listener net.Listener
}

type Config struct {
	Address string
	Port    int
}

func (c *Config) validate() error {
	var errGrp []error
	if c.Address == "" {
		errGrp = append(errGrp, errors.New("address required"))
	}
	if c.Port == 0 {
		errGrp = append(errGrp, errors.New("port required"))
	}
	return errors.Join(errGrp...)
}

// NewServer registers the scan collectors with a new registry and binds the metrics listener.
func NewServer(cfg *Config) (*Server, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	reg.MustRegister(collectors.NewGoCollector())

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	addr := fmt.Sprintf("%s:%d", cfg.Address, cfg.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics listener on %s: %w", addr, err)
	}

	return &Server{
		address:  addr,
		listener: lis,
		server: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}, nil
}

func (s *Server) Start() error {
	log.Info().Str("address", s.address).Msg("metrics server listening")

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server failed")
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-time.After(500 * time.Millisecond):
		return nil
	}
}

func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) Name() string {
	return "Metrics Server"
}

// Addr returns the bound listener address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}
