package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/scribe/internal/humanizer"
	"github.com/JaimeStill/scribe/internal/posts"
)

var keyword string

var humanizeCmd = &cobra.Command{
	Use:   "humanize <content.json|->",
	Short: "Humanize post content from a file or stdin and print the result",
	Long: `Runs the deterministic cleanup pass over post content without touching
the database. The change log goes to stderr; the cleaned content goes to stdout.`,
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{offline: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := readContent(cmd, args[0])
		if err != nil {
			return err
		}

		h := humanizer.New(nil, nil)
		res := h.Humanize(c)
		for _, change := range res.Changes {
			fmt.Fprintln(cmd.ErrOrStderr(), change)
		}
		if banned, suggestion := h.CheckOpening(res.Content.Hero.Hook); banned {
			fmt.Fprintln(cmd.ErrOrStderr(), "opening:", suggestion)
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res.Content)
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <content.json|->",
	Short: "Humanize generated content and store it as a new draft",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := readContent(cmd, args[0])
		if err != nil {
			return err
		}

		res, err := domain.Pipeline.Ingest(cmd.Context(), keyword, c)
		if err != nil {
			return err
		}
		return emit(cmd, res, func() {
			fmt.Fprintf(cmd.OutOrStdout(), "created %s %q (%d changes)\n", res.Post.ID, res.Post.Title, len(res.Changes))
		})
	},
}

func readContent(cmd *cobra.Command, path string) (posts.Content, error) {
	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return posts.Content{}, err
		}
		defer f.Close()
		r = f
	}

	var c posts.Content
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return posts.Content{}, fmt.Errorf("%w: %w", posts.ErrInvalidContent, err)
	}
	return c, nil
}

func init() {
	ingestCmd.Flags().StringVar(&keyword, "keyword", "", "primary keyword of the post")
	ingestCmd.MarkFlagRequired("keyword")
}
