// Package server provides HTTP transport and lifecycle management for the
// Smart Tickets decision API.
package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/smarttickets/smarttickets/internal/config"
)

// NewMux builds the route table for the decision API.
func NewMux(h *Handlers) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.Health(w, r)
	})

	post := func(pattern string, fn http.HandlerFunc) {
		mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
				return
			}
			fn(w, r)
		})
	}
	post("/similar", h.Similar)
	post("/assign", h.Assign)
	post("/solution", h.Solution)
	post("/tickets", h.CreateTicket)

	return mux
}

// Start initializes and starts the HTTP server, returning the actual address
// being listened on (useful for testing with port 0). The server shuts down
// gracefully when ctx is canceled.
func Start(ctx context.Context, cfg *config.Config, h *Handlers) (string, error) {
	var rl *RateLimiter
	if cfg.Server.RequestsPerSecond > 0 {
		rl = NewRateLimiter(cfg.Server.RequestsPerSecond, int(cfg.Server.RequestsPerSecond)*2)
	}

	var handler http.Handler = NewMux(h)
	handler = rateLimitMiddleware(handler, rl)
	handler = requestIDMiddleware(handler)
	handler = securityHeadersMiddleware(handler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // decision endpoints wait on model calls
		IdleTimeout:  60 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("server: failed to listen on %s: %w", addr, err)
	}
	actualAddr := listener.Addr().String()

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("server: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("server: shutdown error: %v", err)
		}
	}()

	return actualAddr, nil
}
