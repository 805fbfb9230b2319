package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jedisct1/go-spn/internal/report"
	"github.com/jedisct1/go-spn/internal/store"
)

func newHistoryCommand() *cobra.Command {
	var (
		configFile string
		dataDir    string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List archived harness runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dataDir == "" {
				cfg, err := loadConfig(configFile)
				if err != nil {
					return err
				}
				dataDir = cfg.Output.DataDir
			}
			if dataDir == "" {
				return fmt.Errorf("required flag: --data-dir, or a configuration with Output.DataDir")
			}

			s, err := store.Open(dataDir)
			if err != nil {
				return err
			}
			defer s.Close()
			entries, err := s.List()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTIMESTAMP\tSEED SIZES\tCORRECT\tDIFFUSION\tCONFUSION\tEQUIVALENT PAIRS")
			for _, e := range entries {
				r := e.Report
				pairs := "-"
				if r.KeyEquivalence != nil {
					pairs = fmt.Sprint(r.KeyEquivalence.EquivalentPairs)
				}
				fmt.Fprintf(w, "%d\t%s\t%v\t%v\t%s\t%s\t%s\n",
					e.ID,
					r.Metadata.Timestamp,
					r.Metadata.SeedSizesTested,
					r.AllCorrect(),
					percentage(r.Diffusion),
					percentage(r.Confusion),
					pairs,
				)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "path to the harness configuration file (TOML format)")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "archive directory, overrides the configuration")
	return cmd
}

func percentage(m map[string]*report.Avalanche) string {
	if len(m) == 0 {
		return "-"
	}
	return fmt.Sprintf("%.2f%%", report.MeanPercentage(m))
}
