// Command scribe is the operator CLI for the review and rewrite loop.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JaimeStill/scribe/internal/api"
	"github.com/JaimeStill/scribe/internal/config"
	"github.com/JaimeStill/scribe/internal/infrastructure"
)

// offline marks commands that run without database or provider access.
const offline = "offline"

var (
	cfg    *config.Config
	infra  *infrastructure.Infrastructure
	domain *api.Domain

	asJSON bool
)

var rootCmd = &cobra.Command{
	Use:   "scribe",
	Short: "Review, rewrite and learn from generated blog posts",
	Long: `scribe drives the content quality loop from the command line.

Drafts are scored against the rubric, failing posts are rewritten with
learned rules in the prompt, and posts that exhaust their rewrite budget
are marked for deletion.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "print results as JSON")

	rootCmd.AddCommand(
		reviewCmd,
		rewriteCmd,
		rulesCmd,
		statsCmd,
		humanizeCmd,
		ingestCmd,
		sweepCmd,
		usageCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load env file: %w", err)
	}
	if cmd.Annotations[offline] == "true" {
		return nil
	}

	var err error
	if cfg, err = config.Load(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if infra, err = infrastructure.New(cfg); err != nil {
		return err
	}
	if err := infra.Start(); err != nil {
		return err
	}
	infra.Lifecycle.WaitForStartup()

	domain = api.NewDomain(api.NewRuntime(cfg, infra))
	return nil
}

func teardown(*cobra.Command, []string) error {
	if infra == nil {
		return nil
	}
	return infra.Lifecycle.Shutdown(cfg.ShutdownTimeoutDuration())
}

// emit prints v as indented JSON when --json is set, otherwise calls text.
func emit(cmd *cobra.Command, v any, text func()) error {
	if !asJSON {
		text()
		return nil
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
