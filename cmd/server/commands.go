package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"gwi.com/botchat/internal/core"
	"gwi.com/botchat/internal/logger"
	"gwi.com/botchat/internal/store"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|version]",
		Short:     "Manage database schema migrations",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"up", "down", "version"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			dbStore, err := store.Connect(cmd.Context(), logger.L, cfg.DatabaseDriver, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer dbStore.Close()
			return dbStore.RunMigrate(args[0])
		},
	}
}

func newExportCmd() *cobra.Command {
	var (
		conversationID int64
		userID         int64
		out            string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a conversation transcript as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			dbStore, err := store.Open(ctx, logger.L, cfg.DatabaseDriver, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer dbStore.Close()

			exports, err := newArtifactStore(ctx, cfg)
			if err != nil {
				return err
			}
			// Export never calls the completion relay.
			chatService := core.NewChatService(logger.L, dbStore, nil, exports, cfg.ChatModel)
			file, err := chatService.Export(ctx, userID, conversationID)
			if err != nil {
				return fmt.Errorf("export conversation %d: %w", conversationID, err)
			}

			if out != "" {
				if err := os.WriteFile(out, file.Data, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", out, err)
				}
			}
			logger.L.Info("conversation exported", slog.String("name", file.Name), slog.String("location", file.Location))
			fmt.Fprintln(cmd.OutOrStdout(), file.Location)
			return nil
		},
	}
	cmd.Flags().Int64Var(&conversationID, "conversation", 0, "conversation id")
	cmd.Flags().Int64Var(&userID, "user", 0, "id of the user owning the conversation")
	cmd.Flags().StringVar(&out, "out", "", "also write the CSV to this path")
	_ = cmd.MarkFlagRequired("conversation")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
