package main

import (
	"errors"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/AndersD76/portalpili-producao-sub005/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check directories, database and backends",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			// A store that fails to open is reported by the database check.
			st, _ := ctx.ensureStore()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config: %s\n", ctx.configPath)

			results := preflight.RunAll(cmd.Context(), cfg, st)
			rows := make([][]string, 0, len(results))
			for _, r := range results {
				rows = append(rows, []string{r.Name, checkLabel(r), yesNo(r.Optional), r.Detail})
			}
			fmt.Fprintln(out, renderTable([]string{"Check", "Status", "Optional", "Detail"}, rows, nil))

			if preflight.Failed(results) {
				return errors.New("one or more required checks failed")
			}
			fmt.Fprintln(out, "All required checks passed")
			return nil
		},
	}
}

func checkLabel(r preflight.Result) string {
	label, color := "FAIL", text.FgRed
	switch {
	case r.Passed:
		label, color = "OK", text.FgGreen
	case r.Optional:
		label, color = "WARN", text.FgYellow
	}
	if !colorOutput {
		return label
	}
	return text.Colors{color}.Sprint(label)
}
