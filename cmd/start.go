package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"reqkit/api"
	"reqkit/config"
	"reqkit/core"
	"reqkit/logger"

	"github.com/spf13/cobra"
)

var (
	startServerPort string
	startProxyPort  string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Starts all reqkit services (API server and capture proxy)",
	Long: `Starts both the API server and the capture proxy concurrently.
Press Ctrl+C to gracefully shut down all services.`,
	Run: func(cmd *cobra.Command, args []string) {
		actualServerPort := startServerPort
		if !cmd.Flags().Changed("server-port") {
			actualServerPort = config.AppConfig.Server.Port
		}
		if actualServerPort == "" {
			actualServerPort = "8690"
		}

		actualProxyPort := startProxyPort
		if !cmd.Flags().Changed("proxy-port") {
			actualProxyPort = config.AppConfig.Proxy.Port
		}
		if actualProxyPort == "" {
			actualProxyPort = "8691"
		}

		logger.Info("Starting services: API server on :%s, capture proxy on :%s", actualServerPort, actualProxyPort)

		var wg sync.WaitGroup
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		wg.Add(1)
		go func(parentCtx context.Context) {
			defer wg.Done()

			mainMux := http.NewServeMux()
			mainMux.Handle("/api/", http.StripPrefix("/api", api.NewRouter()))

			server := &http.Server{
				Addr:    ":" + actualServerPort,
				Handler: mainMux,
			}

			go func() {
				<-parentCtx.Done()
				logger.Info("API server: shutdown signal received...")
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					logger.Error("API server: graceful shutdown failed: %v", err)
				} else {
					logger.Info("API server: gracefully stopped.")
				}
			}()

			logger.Info("API server: listening on :%s", actualServerPort)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("API server: ListenAndServe error: %v", err)
				cancel()
			}
		}(ctx)

		wg.Add(1)
		go func(parentCtx context.Context) {
			defer wg.Done()

			caCertPath := config.AppConfig.Proxy.CACertPath
			caKeyPath := config.AppConfig.Proxy.CAKeyPath
			if caCertPath == "" || caKeyPath == "" {
				logger.Error("Capture proxy: CA certificate or key path not configured. Check config or run 'proxy init-ca' first.")
				cancel()
				return
			}

			proxyErrChan := make(chan error, 1)
			go func() {
				proxyErrChan <- core.StartCaptureProxy(actualProxyPort, caCertPath, caKeyPath)
			}()

			select {
			case err := <-proxyErrChan:
				if err != nil {
					logger.ProxyError("Capture proxy exited with error: %v", err)
					cancel()
				}
			case <-parentCtx.Done():
				logger.ProxyInfo("Capture proxy: shutdown signal received...")
			}
		}(ctx)

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

		logger.Info("All service goroutines launched. Press Ctrl+C to exit.")

		select {
		case sig := <-sigs:
			logger.Info("Received signal: %s. Initiating shutdown...", sig)
		case <-ctx.Done():
			logger.Info("Context cancelled (likely due to a service error). Initiating shutdown...")
		}

		cancel()

		shutdownComplete := make(chan struct{})
		go func() {
			wg.Wait()
			close(shutdownComplete)
		}()

		select {
		case <-shutdownComplete:
			logger.Info("All services shut down.")
		case <-time.After(10 * time.Second):
			logger.Error("Shutdown timed out. Forcing exit.")
		}
	},
}

func init() {
	startCmd.Flags().StringVar(&startServerPort, "server-port", "8690", "Port for the API server (overrides config)")
	startCmd.Flags().StringVar(&startProxyPort, "proxy-port", "8691", "Port for the capture proxy server (overrides config)")
	rootCmd.AddCommand(startCmd)
}
