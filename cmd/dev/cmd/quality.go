package cmd

import (
	"fmt"
	"log/slog"

	"github.com/gophertribe/devtool/test"
	"github.com/spf13/cobra"
)

func qualityCmd(use, short string, run func() error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			slog.Debug("running quality check", "check", use)
			if err := run(); err != nil {
				return fmt.Errorf("%s failed: %w", use, err)
			}
			return nil
		},
	}
}

func TestCmd() *cobra.Command {
	return qualityCmd("test", "Run unit tests of the bootloader, simulator and host client", test.Test)
}

func LintCmd() *cobra.Command {
	return qualityCmd("lint", "Run linting", test.Lint)
}

// IntegrationTestCmd runs the tests that need a USBtinyISP device attached.
func IntegrationTestCmd() *cobra.Command {
	return qualityCmd("integration-test", "Run tests against a connected device", test.Integ)
}
