package main

import (
	"path/filepath"

	"union-ledger/internal/config"
	"union-ledger/internal/importer"
	"union-ledger/internal/store"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func importCommand() *cobra.Command {
	var flags reportFlags
	cmd := &cobra.Command{
		Use:   "import [report.xlsx]",
		Short: "Import a report into the database",
		Long:  `Reconcile one report against POSTGRES_DSN. Re-importing a period replaces its sessions.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			srvCfg, err := config.LoadServer()
			if err != nil {
				return err
			}
			cfg, err := config.LoadImport()
			if err != nil {
				return err
			}
			opts, err := flags.options(cfg, filepath.Base(args[0]))
			if err != nil {
				return err
			}
			doc, err := readReport(args[0])
			if err != nil {
				return err
			}

			st, err := store.New(srvCfg.PostgresDSN)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.Ping(cmd.Context()); err != nil {
				return err
			}

			res, err := importer.NewService(st, cfg, nil).ImportPeriod(cmd.Context(), doc, opts)
			if err != nil {
				return err
			}
			log.Info().Str("file", args[0]).Int("sessions", res.SessionsImported).Msg("import committed")
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	flags.bind(cmd)
	return cmd
}
