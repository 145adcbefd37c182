package main

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var parseModel string

var parseCmd = &cobra.Command{
	Use:   "parse <pdf-url>",
	Short: "Extract assessment fields from a notice PDF at a public or signed URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("parse"); err != nil {
			return err
		}
		client, models, err := initLLM()
		if err != nil {
			return err
		}
		if client == nil {
			return eris.New("LLM API key is not configured")
		}

		res, err := initParser(client, models).Parse(cmd.Context(), args[0], parseModel)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

func init() {
	parseCmd.Flags().StringVar(&parseModel, "model", "", "override the extraction model")
	rootCmd.AddCommand(parseCmd)
}
