package main

import (
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/appeal-cli/internal/model"
)

var profileCmd = &cobra.Command{
	Use:   "profile <fips> <name> [assessment-ratio]",
	Short: "Create or update a county tax profile",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("migrate"); err != nil {
			return err
		}
		profile, err := parseProfileArgs(args)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}
		if err := st.UpsertTaxProfile(ctx, profile); err != nil {
			return err
		}
		zap.L().Info("tax profile saved", zap.String("fips", profile.FIPS), zap.Float64p("ratio", profile.DefaultAssessmentRatio))
		return nil
	},
}

func parseProfileArgs(args []string) (model.JurisdictionTaxProfile, error) {
	p := model.JurisdictionTaxProfile{FIPS: args[0], Name: args[1]}
	if len(p.FIPS) != 5 {
		return p, eris.Errorf("fips must be a 5-digit county code: %q", p.FIPS)
	}
	if _, err := strconv.Atoi(p.FIPS); err != nil {
		return p, eris.Errorf("fips must be a 5-digit county code: %q", p.FIPS)
	}
	if len(args) == 3 {
		r, err := strconv.ParseFloat(args[2], 64)
		if err != nil || r <= 0 || r > 1 {
			return p, eris.Errorf("assessment ratio must be in (0, 1]: %q", args[2])
		}
		p.DefaultAssessmentRatio = &r
	}
	return p, nil
}

func init() {
	rootCmd.AddCommand(profileCmd)
}
