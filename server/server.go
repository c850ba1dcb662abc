// Package server exposes the ledger over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"wagerledger/metrics"
	"wagerledger/service"
)

const requestTimeout = 30 * time.Second

// TransactionSubmitter executes wire encoded signed transactions
type TransactionSubmitter interface {
	Submit(ctx context.Context, raw []byte) (*service.Receipt, error)
}

// Server routes HTTP requests to the ledger and its read side
type Server struct {
	ledger TransactionSubmitter
	query  service.QueryService
	router chi.Router
}

// New creates the HTTP server with its full middleware stack
func New(ledger TransactionSubmitter, query service.QueryService) *Server {
	s := &Server{
		ledger: ledger,
		query:  query,
		router: chi.NewRouter(),
	}
	s.routes()
	return s
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(metrics.Middleware)

	r.Get("/health", s.health)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/transactions", s.submitTransaction)

		r.Get("/accounts/{address}", s.getAccount)
		r.Get("/profiles/{wallet}", s.getProfile)
		r.Get("/wallets/{wallet}/bets", s.listWalletBets)
		r.Get("/wallets/{wallet}/friends", s.listWalletFriends)
		r.Get("/bets", s.listBets)
		r.Get("/leaderboard", s.leaderboard)
	})
}

// ListenAndServe serves on addr until ctx is cancelled, then drains
// in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: requestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("HTTP server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
