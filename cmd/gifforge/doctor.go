package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/heimdex/gifforge/internal/media"
	"github.com/heimdex/gifforge/internal/toolcheck"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that the external tools are installed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			checker := toolcheck.NewChecker(toolcheck.DefaultSpecs(toolOptions(cfg)), media.NewExecRunner(ctx.logger()))

			probeCtx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			report, err := checker.Probe(probeCtx)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderDoctor(report))
			if !report.Ready() {
				return fmt.Errorf("missing required tools: %s", strings.Join(report.Missing(), ", "))
			}
			return nil
		},
	}
}

func renderDoctor(report *toolcheck.Report) string {
	rows := make([][]string, 0, len(report.Tools))
	for _, t := range report.Tools {
		detail := t.Path
		if t.Error != "" {
			detail = t.Error
		}
		rows = append(rows, []string{t.Name, yesNo(t.Required), yesNo(t.Available), t.Version, detail})
	}
	return renderTable([]string{"Tool", "Required", "Available", "Version", "Detail"}, rows, nil)
}
