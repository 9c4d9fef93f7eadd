// This package contains the supervisor that manages the privora workers.
package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

const DefaultSupervisorTimeout = time.Minute

// A worker that runs in the background.
type Worker interface {
	// Start the worker.
	// The worker should send a message to the ready channel when it is ready.
	// The worker should stop when the context is canceled.
	Start(ctx context.Context, ready chan<- struct{}) error

	// Get the name of the worker.
	String() string
}

// This worker is responsible for a shutdown timeout.
// If the supervisor doesn't shut down before the timeout, the worker exits
// with an error.
type SupervisorWorker struct {
	Name            string
	Workers         []Worker
	ShutdownTimeout time.Duration
}

func (w SupervisorWorker) String() string {
	if w.Name != "" {
		return w.Name
	}
	return "supervisor"
}

func (w SupervisorWorker) Start(ctx context.Context, ready chan<- struct{}) error {
	timeout := w.ShutdownTimeout
	if timeout == 0 {
		timeout = DefaultSupervisorTimeout
	}
	group, ctx := errgroup.WithContext(ctx)

	// start each worker in order, waiting for it to be ready before starting
	// the next one
	for _, worker := range w.Workers {
		worker := worker
		innerReady := make(chan struct{}, 1)
		group.Go(func() error {
			err := worker.Start(ctx, innerReady)
			if err != nil && ctx.Err() == nil {
				slog.Error("supervisor: worker exited with error",
					"worker", worker.String(), "error", err)
			} else {
				slog.Debug("supervisor: worker exited", "worker", worker.String())
			}
			return err
		})
		select {
		case <-innerReady:
			slog.Debug("supervisor: worker is ready", "worker", worker.String())
		case <-ctx.Done():
			return waitGroup(ctx, group, timeout)
		}
	}

	ready <- struct{}{}
	return waitGroup(ctx, group, timeout)
}

// Wait for the group. Once the context is canceled the workers have the
// shutdown timeout to exit.
func waitGroup(ctx context.Context, group *errgroup.Group, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() {
		done <- group.Wait()
	}()
	select {
	case err := <-done:
		return ignoreCanceled(err)
	case <-ctx.Done():
	}
	select {
	case err := <-done:
		return ignoreCanceled(err)
	case <-time.After(timeout):
		slog.Error("supervisor: shutdown timed out")
		return context.DeadlineExceeded
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// This worker listens to a HTTP endpoint until the context is canceled.
type HttpWorker struct {
	Address string
	Handler http.Handler
}

func (w HttpWorker) String() string {
	return "http " + w.Address
}

func (w HttpWorker) Start(ctx context.Context, ready chan<- struct{}) error {
	server := http.Server{
		Addr:    w.Address,
		Handler: w.Handler,
	}
	listener, err := net.Listen("tcp", w.Address)
	if err != nil {
		return err
	}
	slog.Info("http: server started listening", "address", w.Address)
	done := make(chan error, 1)
	go func() {
		ready <- struct{}{}
		err := server.Serve(listener)
		done <- err
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}
