package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/newtron-network/netconsole/pkg/api"
	"github.com/newtron-network/netconsole/pkg/device"
	"github.com/newtron-network/netconsole/pkg/util"
)

var (
	listenAddr string
	logJSON    bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: `Serve the HTTP API and Prometheus metrics.

Endpoints:
  GET  /health
  GET  /metrics
  GET  /api/v1/devices/{device}/interfaces/{interface}
  POST /api/v1/devices/{device}/interfaces/{interface}/plan
  POST /api/v1/devices/{device}/interfaces/{interface}/reconcile
  GET  /api/v1/audit?device=&interface=&limit=

SSH passwords missing from the inventory are read from NETCONSOLE_SSH_PASSWORD.

Examples:
  netconsole serve
  netconsole serve --listen 127.0.0.1:9000 --log-json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if listenAddr == "" {
			listenAddr = userSettings.GetListenAddr()
		}
		if logJSON {
			util.SetJSONFormat()
		}
		if !verbose {
			util.SetLogLevel("info")
		}

		pool, err := openPool()
		if err != nil {
			return err
		}
		defer pool.Close()

		server := api.NewServer(device.NewDiscovery(pool), newReconciler(pool, nil), auditLogger)
		httpServer := &http.Server{
			Addr:              listenAddr,
			Handler:           server.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			util.WithField("addr", listenAddr).Info("Serving HTTP API")
			errCh <- httpServer.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-ctx.Done():
		}

		util.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address (default from settings, :8080)")
	serveCmd.Flags().BoolVar(&logJSON, "log-json", false, "Log in JSON format")
}
