// Package server exposes the HTTP API: wallet provisioning, balance
// queries, and gasless transfer submission.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/liquidpay/liquidpay/pkg/config"
	"github.com/liquidpay/liquidpay/pkg/logger"
	"github.com/liquidpay/liquidpay/pkg/metrics"
	"github.com/liquidpay/liquidpay/pkg/store"
	"github.com/liquidpay/liquidpay/pkg/transfer"
)

// TransferService is the transfer acceptance boundary.
type TransferService interface {
	Submit(ctx context.Context, userID, network, destination, amount string) (*store.Transfer, *transfer.Result, error)
	Get(id string) (*store.Transfer, error)
	ListForUser(userID string, limit int) ([]store.Transfer, error)
}

// WalletStore is the wallet surface the API needs; it never exposes
// key material.
type WalletStore interface {
	ProvisionWallet(userID string) (*store.Wallet, error)
	GetWalletAddresses(userID string) (*store.Addresses, error)
}

// Server is the HTTP front of the service.
type Server struct {
	cfg     *config.ServerConfig
	svc     TransferService
	wallets WalletStore
	oracle  transfer.Oracle
	http    *http.Server
}

// New builds the server; Run starts it.
func New(cfg *config.ServerConfig, svc TransferService, wallets WalletStore, oracle transfer.Oracle) *Server {
	return &Server{
		cfg:     cfg,
		svc:     svc,
		wallets: wallets,
		oracle:  oracle,
	}
}

// Router assembles the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(requestLogging)

	limited := newRateLimiter(s.cfg.RateLimitRPS, s.cfg.RateLimitBurst)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	r.Handle("/wallets/{userID}", limited(http.HandlerFunc(s.handleProvisionWallet))).Methods(http.MethodPost)
	r.Handle("/wallets/{userID}", limited(http.HandlerFunc(s.handleGetWallet))).Methods(http.MethodGet)
	r.Handle("/wallets/{userID}/balances", limited(http.HandlerFunc(s.handleGetBalances))).Methods(http.MethodGet)
	r.Handle("/wallets/{userID}/transfers", limited(http.HandlerFunc(s.handleListTransfers))).Methods(http.MethodGet)

	r.Handle("/transfers", limited(http.HandlerFunc(s.handleCreateTransfer))).Methods(http.MethodPost)
	r.Handle("/transfers/{id}", limited(http.HandlerFunc(s.handleGetTransfer))).Methods(http.MethodGet)

	return r
}

// Run serves until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.InfoCF("server", "HTTP server listening", map[string]any{
			"addr": addr,
		})
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.InfoC("server", "Shutting down HTTP server")
		return s.http.Shutdown(shutdownCtx)
	}
}
