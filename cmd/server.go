package cmd

import (
	"net/http"

	"reqkit/api"
	"reqkit/config"
	"reqkit/logger"

	"github.com/spf13/cobra"
)

var standaloneServerPort string

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Starts the API server (can be run standalone or as part of 'start')",
	Run: func(cmd *cobra.Command, args []string) {
		portToUse := standaloneServerPort
		if !cmd.Flags().Changed("port") {
			portToUse = config.AppConfig.Server.Port
		}
		if portToUse == "" {
			portToUse = "8690"
		}

		logger.Info("Starting API server on port %s...", portToUse)

		mainMux := http.NewServeMux()
		mainMux.Handle("/api/", http.StripPrefix("/api", api.NewRouter()))

		if err := http.ListenAndServe(":"+portToUse, mainMux); err != nil {
			logger.Fatal("Could not start server: %v", err)
		}
	},
}

func init() {
	serverCmd.Flags().StringVarP(&standaloneServerPort, "port", "p", "8690", "Port for the server to listen on (if run standalone)")
	rootCmd.AddCommand(serverCmd)
}
