package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/santinoo1919/medtrixmap/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the configured feature sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(viper.GetViper())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tKIND\tENABLED\tFILTERS\tLABEL")
		for _, def := range cfg.Sources {
			kind := string(def.Kind)
			if kind == "" {
				kind = "http"
			}
			filters := "viewport"
			if def.CategoryField != "" {
				filters += ",category"
			}
			if def.RegionField != "" {
				filters += ",region"
			}
			fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\n", def.ID, kind, def.Enabled, filters, def.Label)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}
