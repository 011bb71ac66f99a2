package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/scribe/internal/posts"
)

var showPrompt bool

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Show learned rule statistics or the rendered prompt block",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		if showPrompt {
			text, err := domain.Rules.GeneratePromptRules(ctx)
			if err != nil {
				return err
			}
			return emit(cmd, map[string]string{"prompt": text}, func() {
				if text == "" {
					fmt.Fprintln(out, "no active rules")
					return
				}
				fmt.Fprintln(out, text)
			})
		}

		stats, err := domain.Rules.Stats(ctx)
		if err != nil {
			return err
		}
		return emit(cmd, stats, func() {
			fmt.Fprintf(out, "%d rules, %d failures\n", stats.TotalRules, stats.TotalFailures)
			for _, v := range stats.TopViolations {
				fmt.Fprintf(out, "  %4d  %s\n", v.Count, v.Rule)
			}
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Count posts per status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		counts, err := domain.Pipeline.Counts(cmd.Context())
		if err != nil {
			return err
		}
		return emit(cmd, counts, func() {
			statuses := make([]string, 0, len(counts))
			for s := range counts {
				statuses = append(statuses, string(s))
			}
			slices.Sort(statuses)
			for _, s := range statuses {
				fmt.Fprintf(cmd.OutOrStdout(), "%-14s %d\n", s, counts[posts.Status(s)])
			}
		})
	},
}

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show per-key request usage for today",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		report, err := domain.Pipeline.Usage(cmd.Context())
		if err != nil {
			return err
		}
		return emit(cmd, report, func() {
			if len(report.Keys) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no completion keys configured")
				return
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.ReplaceAll(report.Summary, " | ", "\n"))
		})
	},
}

func init() {
	rulesCmd.Flags().BoolVar(&showPrompt, "prompt", false, "print the learned rules prompt block")
}
