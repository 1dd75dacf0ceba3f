// Command jsonrpc serves the sample services over JSON-RPC 2.0.
//
// Configuration comes from the environment, optionally seeded from a .env
// file; see Config. Try:
//
//	curl -s localhost:8080/ -d '{"jsonrpc":"2.0","method":"math.Add","params":{"a":2,"b":3},"id":1}'
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mnehpets/onerpc/endpoint"
	"github.com/mnehpets/onerpc/jsonrpc"
	"github.com/mnehpets/onerpc/middleware"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	logger, err := cfg.NewLogger(os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	handler, err := newHandler(cfg, logger)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr, "path", cfg.Path)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// newHandler wires the registry, dispatcher and HTTP processors.
func newHandler(cfg Config, logger *slog.Logger) (http.Handler, error) {
	reg := jsonrpc.NewRegistry()
	if err := registerServices(reg, logger); err != nil {
		return nil, err
	}
	d := jsonrpc.NewDispatcher(reg, jsonrpc.WithLogger(logger))
	logger.Info("registered methods", "methods", reg.Methods())
	rpc := jsonrpc.NewEndpoint(d,
		jsonrpc.WithAllowGET(cfg.AllowGET),
		jsonrpc.WithTimeout(cfg.HandlerTimeout),
		jsonrpc.WithEndpointLogger(logger),
	)

	security := middleware.NewAPISecurityHeaders()
	if origins := cfg.Origins(); len(origins) > 0 {
		security = middleware.NewAPISecurityHeaders(middleware.WithCORS(middleware.DefaultCORS(origins...)))
	}
	processors := []endpoint.Processor{security, middleware.RequestID(), middleware.AccessLog(logger)}

	mux := http.NewServeMux()
	mux.Handle("GET /healthz", endpoint.Handler(func(w http.ResponseWriter, r *http.Request, _ struct{}) (endpoint.Renderer, error) {
		return &endpoint.StringRenderer{Body: "ok\n"}, nil
	}))
	rpcHandler := endpoint.Handler(rpc.Endpoint, processors...)
	rpcHandler.Logger = logger
	mux.Handle(cfg.Path, rpcHandler)
	return mux, nil
}
