// Command piskoqo serves the support-chat API.
//
//	piskoqo serve            start the HTTP server (default)
//	piskoqo migrate          apply the SQL schema of the configured store
//	piskoqo purge --user ID  delete the stored conversation of a user
//	piskoqo remember --user ID --text "..."  store a memory fragment
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/piskoqo/backend/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := buildRootCmd().ExecuteContext(ctx); err != nil {
		log.Fatalf("piskoqo: %v", err)
	}
}

func buildRootCmd() *cobra.Command {
	serve := buildServeCmd()
	root := &cobra.Command{
		Use:           "piskoqo",
		Short:         "Support-chat backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	root.AddCommand(
		serve,
		buildMigrateCmd(),
		buildPurgeCmd(),
		buildRememberCmd(),
	)
	return root
}

// loadConfig reads .env when present, then the environment.
func loadConfig() (*config.Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}
	return config.Load()
}
