package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"skaleclub_backend/internal/leadform/domain"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newShowCommand(open Opener) *cobra.Command {
	var format string
	var baseline bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective form config",
		Long: `Print the configuration the public form is served with. Use
--baseline to print the configuration shipped with this build instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "yaml" && format != "json" {
				return fmt.Errorf("unsupported format %q (use yaml or json)", format)
			}
			return withService(cmd, open, func(ctx context.Context, svc FormConfigService) error {
				out := cmd.OutOrStdout()
				if baseline {
					return writeConfig(out, svc.Baseline(), format)
				}

				status, err := svc.Status(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "source: %s\n", status.Source)
				if status.PendingMigration {
					fmt.Fprintln(cmd.ErrOrStderr(), "stored config differs from the baseline; run formctl sync")
				}
				return writeConfig(out, status.Config, format)
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", "yaml", "Output format: yaml or json")
	cmd.Flags().BoolVar(&baseline, "baseline", false, "Print the built-in baseline")

	return cmd
}

func newArchivesCommand(open Opener) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "archives",
		Short: "List archived form config snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, open, func(ctx context.Context, svc FormConfigService) error {
				snaps, err := svc.Archives(ctx, limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(snaps) == 0 {
					fmt.Fprintln(out, "No archived snapshots.")
					return nil
				}
				for _, s := range snaps {
					fmt.Fprintf(out, "%s\t%d bytes\t%s\n", s.Key, s.Size, s.LastModified.UTC().Format("2006-01-02 15:04:05"))
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of snapshots to list")

	return cmd
}

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file.yaml>",
		Short: "Check a form config file without touching the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			return validateConfig(cmd.OutOrStdout(), data)
		},
	}
}

func validateConfig(w io.Writer, data []byte) error {
	cfg, err := domain.ParseYAML(data)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			for _, p := range verr.Problems {
				fmt.Fprintf(w, "%s: %s\n", p.Field, p.Message)
			}
			return fmt.Errorf("%d problem(s) found", len(verr.Problems))
		}
		return err
	}

	fmt.Fprintf(w, "OK: %d questions, maxScore %d\n", len(cfg.Questions), cfg.MaxScore)
	return nil
}

func writeConfig(w io.Writer, cfg domain.FormConfig, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	return enc.Close()
}
