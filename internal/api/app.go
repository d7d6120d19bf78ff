package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

// RunServer runs the HTTP server exposing the directory. This is a blocking call.
func RunServer(port int, h *Handler) {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Printf("profiledir listening on %s\n", srv.Addr)
	log.Fatal(srv.ListenAndServe())
}

// RunServerInterruptible runs the server in the background in a Go routine and
// immediately returns a chan to the caller. The caller can then send a signal
// to the chan to gracefully shutdown the server. It's up to the caller to wait
// in the main Go routine to keep the server running. The listener is bound
// before returning, so addr carries the resolved port (port 0 picks a free
// one) and is safe to dial immediately.
func RunServerInterruptible(port int, h *Handler) (addr string, stop chan<- struct{}, done <-chan error) {
	srv := &http.Server{
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// one-shot channels for control & completion
	stopCh := make(chan struct{})
	doneCh := make(chan error, 1) // buffered so goroutines can finish without blocking

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		doneCh <- err
		return "", stopCh, doneCh
	}

	go func() {
		log.Printf("profiledir listening on %s\n", ln.Addr())
		err := srv.Serve(ln)
		// http.ErrServerClosed is returned on Shutdown; treat that as clean exit
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			doneCh <- err
			return
		}
		doneCh <- nil
	}()

	go func() {
		<-stopCh
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx) // graceful; in-flight requests get time to finish
	}()
	return ln.Addr().String(), stopCh, doneCh
}
