package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

//go:generate mockgen -destination=./app_mock.go -package=app -source=app.go

// Dependency is the interface that wraps the basic methods of a dependency required for the application.
type Dependency interface {
	// Start is anything a dependency needs to do before it's ready to be used
	Start() error
	// Stop is anything a dependency needs to do before it's ready to be stopped
	Stop() error
	// Name is the name of the dependency. It is used for logging and identification purposes, only.
	Name() string
}

type App struct {
	serviceName string
	// deps are started in order and stopped in reverse order.
	deps []Dependency
	// depFailChan receives the first dependency that fails to start.
	depFailChan chan error
	// osSignalChan is a channel that will be used to signal when the OS has sent a signal to the application.
	osSignalChan chan os.Signal
	// stopCalled allows stop to be called once
	stopCalled atomic.Bool
	// runCalled allows Run to be called once
	runCalled atomic.Bool
	// stopTimeout bounds how long the application waits for dependencies to stop.
	stopTimeout time.Duration
}

type Config struct {
	ServiceName string
	StopTimeout time.Duration
}

func (c *Config) validate() error {
	var errs []error
	if c.ServiceName == "" {
		errs = append(errs, errors.New("service name is required"))
	}
	if c.StopTimeout <= 0 {
		errs = append(errs, errors.New("stop timeout is required"))
	}
	return errors.Join(errs...)
}

// CreateApp creates a new application with the provided dependencies.
func CreateApp(cfg *Config, deps ...Dependency) (*App, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &App{
		serviceName:  cfg.ServiceName,
		deps:         deps,
		stopTimeout:  cfg.StopTimeout,
		depFailChan:  make(chan error, 1),
		osSignalChan: make(chan os.Signal, 1), // first signal we get shuts down the app
	}, nil
}

// Run starts the dependencies and blocks until ctx is cancelled, the OS asks the process to
// stop or a dependency fails to start. It then stops every dependency that was started.
func (a *App) Run(ctx context.Context) error {
	if !a.runCalled.CompareAndSwap(false, true) {
		return errors.New("run has already been called")
	}

	ctxCancel, cancel := context.WithCancel(ctx)
	defer cancel()

	// started is only read after startDone is closed.
	started := 0
	startDone := make(chan struct{})
	go func() {
		defer close(startDone)
		for _, dep := range a.deps {
			if ctxCancel.Err() != nil {
				return
			}
			if err := a.start(dep); err != nil {
				a.depFailChan <- err
				return
			}
			started++
		}
		log.Info().Str("service", a.serviceName).Int("dependencies", len(a.deps)).
			Msg("application started")
	}()

	signal.Notify(a.osSignalChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(a.osSignalChan)

	var runErr error
	select {
	case <-ctxCancel.Done():
		log.Info().Msg("App Context cancelled: shutting down")
	case runErr = <-a.depFailChan:
		log.Error().Err(runErr).Msg("Dependency failed to start")
	case sig := <-a.osSignalChan:
		log.Info().Str("signal", sig.String()).Msg("OS Signal received: shutdown beginning...")
	}
	cancel()
	<-startDone

	if err := a.stop(started); err != nil {
		log.Error().Err(err).Msg("Error stopping application")
		return errors.Join(runErr, err)
	}

	return runErr
}

func (a *App) start(dep Dependency) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in Start() for dependency %s: %v", dep.Name(), r)
		}
	}()

	log.Info().Str("dependency", dep.Name()).Msg("Starting dependency")
	if err = dep.Start(); err != nil {
		return fmt.Errorf("failure in Start() for dependency %s: %w", dep.Name(), err)
	}
	return nil
}

// stop stops the first n dependencies in reverse order, giving up after the stop timeout.
func (a *App) stop(n int) error {
	if !a.stopCalled.CompareAndSwap(false, true) {
		return errors.New("stop has already been called")
	}

	done := make(chan error, 1)
	go func() {
		var errs []error
		for i := n - 1; i >= 0; i-- {
			dep := a.deps[i]
			log.Info().Str("dependency", dep.Name()).Msg("Stopping dependency")
			if err := dep.Stop(); err != nil {
				errs = append(errs, fmt.Errorf("failure in Stop() for dependency %s: %w",
					dep.Name(), err))
			}
		}
		done <- errors.Join(errs...)
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(a.stopTimeout):
		return fmt.Errorf("dependencies did not stop within %s: %w", a.stopTimeout,
			context.DeadlineExceeded)
	}
}
