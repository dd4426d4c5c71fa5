package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve exposes assessment and chat over HTTP:

  POST   /assess              {"patient_id": "...", "top_k": 5}
  POST   /chat                {"session_id": "...", "message": "...", "top_k": 5}
  GET    /chat/{id}/history
  DELETE /chat/{id}
  POST   /debug/retrieve      {"query": "...", "top_k": 5}
  GET    /health

Set server.api_key (or NG12_API_KEY) to require "Authorization: Bearer <key>".`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		return a.Server().Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}
