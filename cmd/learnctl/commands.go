package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"learnstack/internal/catalog"
)

var seedCmd = &cobra.Command{
	Use:   "seed <catalog.yaml|catalog.xlsx>",
	Short: "Validate and upsert the topic catalog from a seed file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := catalog.LoadFile(args[0])
		if err != nil {
			return err
		}
		a, err := openApp(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer a.close()

		n, err := a.catalog.Import(cmd.Context(), doc)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d topics from %s\n", n, args[0])
		return nil
	},
}

var recomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "Recalculate stats and unlocks for every user",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer a.close()

		res, err := a.admin.RecomputeAll(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Recomputed %d users (%d failed)\n", res.Updated, res.Failed)
		if res.Failed > 0 {
			return fmt.Errorf("%d users failed to recompute", res.Failed)
		}
		return nil
	},
}

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Leaderboard maintenance",
}

var leaderboardRegenerateCmd = &cobra.Command{
	Use:   "regenerate",
	Short: "Rebuild the all-time and daily-practice boards",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.boards.RegenerateAll(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Leaderboards regenerated.")
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a JSON backup of the catalog, users and progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			output = fmt.Sprintf("backup_%s.json", time.Now().Format("20060102_150405"))
		}
		if dir := filepath.Dir(output); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		a, err := openApp(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer a.close()

		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create backup file: %w", err)
		}
		if err := a.backup.Export(cmd.Context(), f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to write backup file: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Backup written to %s\n", output)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <backup.json>",
	Short: "Restore a JSON backup; existing users are kept",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open backup file: %w", err)
		}
		defer f.Close()

		a, err := openApp(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer a.close()

		summary, err := a.backup.Import(cmd.Context(), f)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d topics, %d users (%d skipped), %d progress documents\n",
			summary.Topics, summary.UsersCreated, summary.UsersSkipped, summary.ProgressWritten)
		return nil
	},
}

func init() {
	leaderboardCmd.AddCommand(leaderboardRegenerateCmd)
	exportCmd.Flags().StringP("output", "o", "", "Output file path (default: backup_YYYYMMDD_HHMMSS.json)")
}
