package main

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/appeal-cli/internal/appeal"
	"github.com/sells-group/appeal-cli/internal/valuation"
)

var (
	lookupNoCache bool
	lookupFile    string
)

var lookupCmd = &cobra.Command{
	Use:   "lookup [address]",
	Short: "Look up the market valuation and tax analytics for an address",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("lookup"); err != nil {
			return err
		}
		ctx := cmd.Context()

		wf := appeal.New(cfg, nil, nil, nil, initValuations(), nil, nil, nil)
		fn := func(ctx context.Context, addr string) (*valuation.Summary, error) {
			return wf.Valuation(ctx, addr, !lookupNoCache)
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")

		if lookupFile != "" {
			f, err := os.Open(lookupFile)
			if err != nil {
				return eris.Wrap(err, "open address file")
			}
			defer f.Close() //nolint:errcheck

			addrs, err := readAddresses(f)
			if err != nil {
				return err
			}
			return enc.Encode(lookupAll(ctx, addrs, cfg.Valuation.BatchConcurrency, fn))
		}

		if len(args) == 0 {
			return eris.New("an address or --file is required")
		}
		v, err := fn(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		return enc.Encode(map[string]any{"valuation": v})
	},
}

// lookupResult is one line of a batch lookup.
type lookupResult struct {
	Address   string             `json:"address"`
	Valuation *valuation.Summary `json:"valuation"`
	Error     string             `json:"error,omitempty"`
}

// readAddresses reads one address per line, skipping blanks and # comments.
func readAddresses(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, eris.Wrap(sc.Err(), "read address file")
}

// lookupAll runs fn over addrs with at most limit lookups in flight and
// returns results in input order. Failures are reported per address.
func lookupAll(ctx context.Context, addrs []string, limit int, fn func(context.Context, string) (*valuation.Summary, error)) []lookupResult {
	if limit < 1 {
		limit = 1
	}
	results := make([]lookupResult, len(addrs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, addr := range addrs {
		g.Go(func() error {
			results[i].Address = addr
			v, err := fn(gctx, addr)
			if err != nil {
				zap.L().Warn("lookup failed", zap.String("address", addr), zap.Error(err))
				results[i].Error = appeal.MessageOf(err)
				return nil
			}
			results[i].Valuation = v
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func init() {
	lookupCmd.Flags().BoolVar(&lookupNoCache, "no-cache", false, "bypass the in-process valuation cache")
	lookupCmd.Flags().StringVar(&lookupFile, "file", "", "file with one address per line")
	rootCmd.AddCommand(lookupCmd)
}
