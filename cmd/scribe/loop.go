package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var batch int

var reviewCmd = &cobra.Command{
	Use:   "review [post-id]",
	Short: "Review one post, or the oldest drafts when no id is given",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		if len(args) == 1 {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid post id: %w", err)
			}
			rv, err := domain.Reviews.Review(ctx, id)
			if err != nil {
				return err
			}
			return emit(cmd, rv, func() {
				fmt.Fprintf(out, "score %d passed=%v issues=%d\n", rv.Score, rv.Passed, len(rv.Issues))
				for _, is := range rv.Issues {
					fmt.Fprintf(out, "  %-24s %4d  %s\n", is.Code, is.Penalty, is.Message)
				}
			})
		}

		sum, err := domain.Pipeline.ReviewDrafts(ctx, batch)
		if err != nil {
			return err
		}
		return emit(cmd, sum, func() {
			fmt.Fprintf(out, "reviewed %d: %d passed, %d failed, %d errors\n",
				sum.Reviewed, sum.Passed, sum.Failed, sum.Errors)
		})
	},
}

var rewriteCmd = &cobra.Command{
	Use:   "rewrite [post-id]",
	Short: "Rewrite one post, or the posts waiting longest when no id is given",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		if len(args) == 1 {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid post id: %w", err)
			}
			ok, err := domain.Rewrite.Rewrite(ctx, id)
			if err != nil {
				return err
			}
			return emit(cmd, map[string]bool{"rewritten": ok}, func() {
				if ok {
					fmt.Fprintln(out, "rewritten, back in draft")
				} else {
					fmt.Fprintln(out, "rewrite output invalid, post unchanged")
				}
			})
		}

		sum, err := domain.Pipeline.RewritePending(ctx, batch)
		if err != nil {
			return err
		}
		return emit(cmd, sum, func() {
			fmt.Fprintf(out, "processed %d: %d succeeded, %d failed\n",
				sum.Processed, sum.Succeeded, sum.Failed)
		})
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete posts marked to_be_deleted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		n, err := domain.Pipeline.SweepDeleted(cmd.Context())
		if err != nil {
			return err
		}
		return emit(cmd, map[string]int{"deleted": n}, func() {
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d posts\n", n)
		})
	},
}

func init() {
	reviewCmd.Flags().IntVar(&batch, "batch", 0, "number of drafts to review (default from config)")
	rewriteCmd.Flags().IntVar(&batch, "batch", 0, "number of posts to rewrite (default from config)")
}
