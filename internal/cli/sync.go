package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"skaleclub_backend/internal/leadform/domain"
	"skaleclub_backend/internal/leadform/service"

	"github.com/spf13/cobra"
)

func newSyncCommand(open Opener) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the stored form config with the baseline",
		Long: `Merge the stored lead form configuration with the baseline shipped
with this build and save the result. Canonical questions take the baseline
wording and options, custom questions are kept after them and missing
questions are appended.

Examples:
  # Show what would change
  formctl sync --dry-run

  # Apply the merge
  formctl sync`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, open, func(ctx context.Context, svc FormConfigService) error {
				result, err := svc.Sync(ctx, dryRun, nil)
				if err != nil {
					return err
				}
				printSyncResult(cmd.OutOrStdout(), result)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report the merge without saving it")

	return cmd
}

func printSyncResult(w io.Writer, result service.SyncResult) {
	if result.DryRun {
		fmt.Fprintln(w, "Form config sync (dry run)")
	} else {
		fmt.Fprintln(w, "Form config sync")
	}

	r := result.Report
	printIDs(w, "adopted", r.Adopted)
	printIDs(w, "appended", r.Appended)
	printIDs(w, "removed strays", r.RemovedStrays)
	printIDs(w, "custom", r.Custom)
	if r.ThresholdsFromBaseline {
		fmt.Fprintln(w, "  thresholds: baseline applied")
	}
	for _, warning := range r.Warnings() {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}

	summary := fmt.Sprintf("%d questions, maxScore %d", len(result.Config.Questions), result.Config.MaxScore)
	switch {
	case !result.Changed:
		fmt.Fprintln(w, "Result: already up to date")
	case result.DryRun:
		fmt.Fprintf(w, "Result: would save %s\n", summary)
	case result.Saved:
		fmt.Fprintf(w, "Result: saved %s\n", summary)
		if result.ArchiveKey != "" {
			fmt.Fprintf(w, "Previous config archived as %s\n", result.ArchiveKey)
		}
	}
}

func printIDs(w io.Writer, label string, ids []domain.QuestionID) {
	if len(ids) == 0 {
		return
	}
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = string(id)
	}
	fmt.Fprintf(w, "  %s: %s\n", label, strings.Join(names, ", "))
}
