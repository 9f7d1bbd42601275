package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/timenorm/internal/observability"
	v1 "github.com/hrygo/timenorm/server/router/api/v1"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP resolve API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "address of server")
	serveCmd.Flags().Int("port", 8081, "port of server")
	serveCmd.Flags().Float64("rate-limit", 10, "requests per second allowed per client")
	serveCmd.Flags().Int("rate-burst", 20, "burst size per client")

	for _, name := range []string{"addr", "port", "rate-limit", "rate-burst"} {
		if err := viper.BindPFlag(name, serveCmd.Flags().Lookup(name)); err != nil {
			panic(err)
		}
	}
}

func runServe(_ *cobra.Command, _ []string) error {
	p, err := loadProfile()
	if err != nil {
		return err
	}
	metrics := observability.NewMetrics(1000)
	svc, err := newService(p, metrics)
	if err != nil {
		return err
	}

	e := v1.NewEchoServer(v1.NewAPIV1Service(p, svc, metrics))
	address := fmt.Sprintf("%s:%d", p.Addr, p.Port)

	errChan := make(chan error, 1)
	go func() {
		slog.Info("timenorm server started",
			slog.String("address", address),
			slog.String("mode", p.Mode),
			slog.String("locale", p.Locale),
			slog.String("version", p.Version),
		)
		if err := e.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err, ok := <-errChan:
		if ok {
			return errors.Wrap(err, "server failed to start")
		}
		return nil
	case <-sigChan:
		slog.Info("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	return nil
}
