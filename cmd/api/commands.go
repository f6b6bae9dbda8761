package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/piskoqo/backend/internal/analysis/text"
	memorymodel "github.com/piskoqo/backend/internal/model/memory"
	"github.com/piskoqo/backend/internal/service/ai"
)

func buildMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the SQL schema of the configured store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := openStore(cmd.Context(), cfg.Store)
			if err != nil {
				return err
			}
			defer st.Close()

			m, ok := st.(migrator)
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "store driver %s has no schema\n", cfg.Store.Driver)
				return nil
			}
			if err := m.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema applied (%s)\n", cfg.Store.Driver)
			return nil
		},
	}
}

func buildPurgeCmd() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete every stored turn of a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID = strings.TrimSpace(userID)
			if userID == "" {
				return errors.New("--user is required")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := openStore(cmd.Context(), cfg.Store)
			if err != nil {
				return err
			}
			defer st.Close()

			deleted, err := st.DeleteTurns(cmd.Context(), userID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d rows for %s\n", deleted, userID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "User identifier")
	return cmd
}

func buildRememberCmd() *cobra.Command {
	var userID, content string
	cmd := &cobra.Command{
		Use:   "remember",
		Short: "Embed a text and store it as a memory fragment",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID = strings.TrimSpace(userID)
			if userID == "" {
				return errors.New("--user is required")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			content = text.Normalize(content, cfg.Heuristics.MaxInputLength)
			if content == "" {
				return errors.New("--text is required")
			}

			embedder, err := ai.NewEmbeddingService(cfg.AI, nil)
			if err != nil {
				return err
			}
			vector, err := embedder.Embed(cmd.Context(), content)
			if err != nil {
				return err
			}

			st, err := openStore(cmd.Context(), cfg.Store)
			if err != nil {
				return err
			}
			defer st.Close()

			fragment, err := st.AddFragment(cmd.Context(), memorymodel.Fragment{
				UserID:    userID,
				Content:   content,
				Embedding: vector,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored fragment %s (%d dims)\n", fragment.ID, len(vector))
			return nil
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "User identifier")
	cmd.Flags().StringVarP(&content, "text", "t", "", "Fragment content")
	return cmd
}
