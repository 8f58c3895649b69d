package main

import (
	"time"

	"union-ledger/internal/config"
	"union-ledger/internal/importer"
	"union-ledger/internal/store/memstore"

	"github.com/spf13/cobra"
)

type inspectReport struct {
	PeriodDate  string           `json:"period_date"`
	Sheets      []string         `json:"sheets"`
	Entities    int              `json:"entities"`
	Lines       int              `json:"lines"`
	SkippedRows int              `json:"skipped_rows"`
	Roles       map[string]int   `json:"roles"`
	Simulated   *importer.Result `json:"simulated,omitempty"`
}

func inspectCommand() *cobra.Command {
	var (
		flags    reportFlags
		simulate bool
	)
	cmd := &cobra.Command{
		Use:   "inspect [report.xlsx]",
		Short: "Parse a report without touching the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadImport()
			if err != nil {
				return err
			}
			opts, err := flags.options(cfg, "inspect")
			if err != nil {
				return err
			}
			if !opts.AllowDateFallback {
				opts.AllowDateFallback = cfg.AllowDateFallback
			}
			doc, err := readReport(args[0])
			if err != nil {
				return err
			}
			parsed, err := importer.Parse(doc, opts, cfg.Location(), time.Now())
			if err != nil {
				return err
			}

			out := inspectReport{
				PeriodDate:  parsed.PeriodDate.Format("2006-01-02"),
				Sheets:      parsed.Sheets,
				Entities:    len(parsed.Entities),
				Lines:       len(parsed.Lines),
				SkippedRows: parsed.SkippedRows,
				Roles:       map[string]int{},
			}
			for _, e := range parsed.Entities {
				out.Roles[string(e.Role)]++
			}
			if simulate {
				res, err := importer.NewService(memstore.New(), cfg, nil).ImportPeriod(cmd.Context(), doc, opts)
				if err != nil {
					return err
				}
				out.Simulated = &res
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	flags.bind(cmd)
	cmd.Flags().BoolVar(&simulate, "simulate", false, "Run the full import against an empty in-memory ledger")
	return cmd
}
