package main

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/appeal-cli/internal/address"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize <address>",
	Short: "Split an address into the street line and city/state/zip used for search",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		comps, ok := address.Normalize(strings.Join(args, " "))
		if !ok {
			return eris.New("address could not be normalized")
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(comps)
	},
}

func init() {
	rootCmd.AddCommand(normalizeCmd)
}
