package cmd

import (
	"fmt"

	"reqkit/config"
	"reqkit/core"
	"reqkit/logger"

	"github.com/spf13/cobra"
)

var standaloneProxyPort string

var proxyCmd = &cobra.Command{
	Use:   "proxy",
	Short: "Manages the capture proxy (can be run standalone or as part of 'start')",
}

var proxyStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Starts the capture proxy server",
	Long: `Starts the MITM proxy that records HTTP/S exchanges into the results log
with source "proxy". Captured exchanges can be turned into tasks.
The CA certificate must be trusted by your client; it is generated on first
use (or explicitly with 'proxy init-ca').`,
	Run: func(cmd *cobra.Command, args []string) {
		portToUse := standaloneProxyPort
		if !cmd.Flags().Changed("port") {
			portToUse = config.AppConfig.Proxy.Port
		}
		if portToUse == "" {
			portToUse = "8691"
		}

		caCertPath := config.AppConfig.Proxy.CACertPath
		caKeyPath := config.AppConfig.Proxy.CAKeyPath
		if caCertPath == "" || caKeyPath == "" {
			logger.Error("Proxy CA certificate or key path not configured. Check config or run 'proxy init-ca' first.")
			return
		}

		logger.ProxyInfo("Starting capture proxy on port %s (CA cert: %s)...", portToUse, caCertPath)
		if err := core.StartCaptureProxy(portToUse, caCertPath, caKeyPath); err != nil {
			logger.ProxyError("Error starting proxy: %v", err)
		}
	},
}

var proxyInitCACmd = &cobra.Command{
	Use:   "init-ca",
	Short: "Initializes (generates) the root CA certificate and key for the capture proxy",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Initializing proxy CA...")
		certPath := config.AppConfig.Proxy.CACertPath
		keyPath := config.AppConfig.Proxy.CAKeyPath

		if certPath == "" || keyPath == "" {
			logger.Error("CA certificate or key path is not defined in configuration.")
			return
		}

		if err := core.GenerateAndSaveCA(certPath, keyPath); err != nil {
			fmt.Printf("Error generating CA. Check logs for details: %v\n", err)
			return
		}
		fmt.Println("Please import the CA certificate into your browser/system's trust store.")
	},
}

func init() {
	proxyStartCmd.Flags().StringVarP(&standaloneProxyPort, "port", "p", "8691", "Port for the proxy server to listen on (overrides config)")

	proxyCmd.AddCommand(proxyStartCmd)
	proxyCmd.AddCommand(proxyInitCACmd)
	rootCmd.AddCommand(proxyCmd)
}
