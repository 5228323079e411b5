package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"voxguard/internal/compliance"
	"voxguard/internal/retention"
	"voxguard/pkg/requestcontext"
)

const cliInitiator = "cli"

func sweepCmd(opts *rootOptions) *cobra.Command {
	var emergency bool
	var reason string
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete voice artifacts past their deadline",
		Long: `Run one voice deletion sweep.

With --emergency every artifact not yet deleted is removed immediately,
regardless of its deadline. An emergency sweep requires --reason.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if emergency && reason == "" {
				return errors.New("--reason is required with --emergency")
			}
			ctx, a, cleanup, err := bootstrap(cmd, opts)
			if err != nil {
				return err
			}
			defer cleanup()
			ctx = requestcontext.WithActorID(ctx, cliInitiator)

			if emergency {
				result, err := a.voice.EmergencyCleanup(ctx, cliInitiator, reason)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result)
			}
			result, err := a.voice.Sweep(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().BoolVar(&emergency, "emergency", false, "delete all undeleted voice data now")
	cmd.Flags().StringVar(&reason, "reason", "", "reason recorded in the audit log")
	return cmd
}

func retentionCmd(opts *rootOptions) *cobra.Command {
	root := &cobra.Command{
		Use:   "retention",
		Short: "Retention policy operations",
	}

	var category, reason string
	enforce := &cobra.Command{
		Use:   "enforce",
		Short: "Apply retention policies now",
		Long: `Apply every retention policy once.

With --category only that category is processed, as an emergency cleanup
that deletes expired records even when the policy would anonymize them.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var parsed retention.Category
			if category != "" {
				c, err := retention.ParseCategory(category)
				if err != nil {
					return err
				}
				if reason == "" {
					return errors.New("--reason is required with --category")
				}
				parsed = c
			}
			ctx, a, cleanup, err := bootstrap(cmd, opts)
			if err != nil {
				return err
			}
			defer cleanup()
			ctx = requestcontext.WithActorID(ctx, cliInitiator)

			if parsed != "" {
				result, err := a.retention.EmergencyCleanup(ctx, parsed, cliInitiator, reason)
				if perr := printJSON(cmd.OutOrStdout(), result); perr != nil {
					return perr
				}
				return err
			}
			run, err := a.retention.Enforce(ctx)
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), run); err != nil {
				return err
			}
			if !run.OK() {
				return fmt.Errorf("%d retention categories failed", run.Failed())
			}
			return nil
		},
	}
	enforce.Flags().StringVar(&category, "category", "", "only this data category (emergency cleanup)")
	enforce.Flags().StringVar(&reason, "reason", "", "reason recorded in the audit log")
	root.AddCommand(enforce)
	return root
}

func checkCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run the compliance health check",
		Long:  "Run the compliance health check and exit non-zero when it reports violations.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, a, cleanup, err := bootstrap(cmd, opts)
			if err != nil {
				return err
			}
			defer cleanup()

			check, err := a.compliance.PerformComplianceCheck(ctx)
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), check); err != nil {
				return err
			}
			if check.Status == compliance.StatusViolation {
				return fmt.Errorf("compliance check reported %d violation(s)", len(check.Violations))
			}
			return nil
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
