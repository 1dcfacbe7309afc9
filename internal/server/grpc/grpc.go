package grpc

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/litetable/litetable-filter/pkg/api"
	"github.com/rs/zerolog/log"
	grpc2 "google.golang.org/grpc"
	"google.golang.org/grpc/reflection"
)

//go:generate mockgen -destination=./grpc_mock.go -package=grpc -source=grpc.go

type grpcServer interface {
	Serve(lis net.Listener) error
	GracefulStop()
}

// Server implements the app.Dependency interface for a gRPC server
type Server struct {
	address  string
	server   grpcServer
	port     int
	listener net.Listener
}

type Config struct {
	Address string
	Port    int
	Store   store
}

func (c *Config) validate() error {
	var errGrp []error
	if c.Address == "" {
		errGrp = append(errGrp, fmt.Errorf("address required"))
	}
	if c.Port == 0 {
		errGrp = append(errGrp, fmt.Errorf("port required"))
	}
	if c.Store == nil {
		errGrp = append(errGrp, fmt.Errorf("store required"))
	}

	return errors.Join(errGrp...)
}

// NewServer creates a new gRPC server instance
func NewServer(cfg *Config) (*Server, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Address, cfg.Port))
	if err != nil {
		return nil, fmt.Errorf("failed to create listener on port %d: %w", cfg.Port, err)
	}

	return &Server{
		address:  cfg.Address,
		server:   newGRPCServer(cfg.Store),
		port:     cfg.Port,
		listener: lis,
	}, nil
}

func newGRPCServer(s store) *grpc2.Server {
	srv := grpc2.NewServer()
	api.RegisterTableServiceServer(srv, &tableService{store: s})
	reflection.Register(srv)
	return srv
}

// Addr returns the address the server is bound to.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

func (s *Server) Start() error {
	log.Info().Msgf("gRPC server listening at %s", s.listener.Addr())

	errCh := make(chan error, 1)

	go func() {
		if err := s.server.Serve(s.listener); err != nil {
			errCh <- err
			log.Error().Err(err).Msg("gRPC server failed")
			return
		}
		errCh <- nil
	}()

	// Block briefly for error or nil return
	select {
	case err := <-errCh:
		return err
	case <-time.After(500 * time.Millisecond):
		return nil
	}
}

func (s *Server) Stop() error {
	log.Info().Msg("Stopping gRPC server")
	s.server.GracefulStop()
	return nil
}

func (s *Server) Name() string {
	return "gRPC Server"
}
