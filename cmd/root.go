/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"viberate/internal/bootstrap/logging"
	"viberate/internal/errs"
)

var (
	cfgFile      string
	outputFormat string
	actorID      string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:          "viberate",
	Short:        "Labor marketplace for paid data annotation",
	Long:         "Researchers fund labeling projects, annotators claim and complete tasks, approvals pay out in USDC.",
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	logging.SetDefault(slog.New(slog.NewTextHandler(rootCmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))
	ctx = logging.WithAttrs(ctx, slog.String("app", "viberate"))

	rootCmd.SetContext(ctx)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logging.Error(ctx, "command execution failed", slog.Any("err", errs.Loggable(err)))
		return errs.Wrap(err, "execute root command")
	}

	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file path (default ./configs/config.yaml when present)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format: table|json|yaml|toml")
	rootCmd.PersistentFlags().StringVar(&actorID, "actor", os.Getenv("VIBERATE_ACTOR"), "Account id to act as")
}

func requireActor() (string, error) {
	if actorID == "" {
		return "", errors.New("--actor (or VIBERATE_ACTOR) is required")
	}
	return actorID, nil
}
