package main

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/Vheissu/abn-checker/internal/api"
	"github.com/Vheissu/abn-checker/internal/model"
)

var (
	lookupFormat  string
	lookupNoCache bool
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <abn>...",
	Short: "Look up one or more ABNs",
	Long:  "Looks up each ABN and prints one result per argument in argument order. Exits non-zero if any lookup fails.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if lookupFormat != "json" && lookupFormat != "yaml" {
			return eris.Errorf("lookup: unsupported format %q", lookupFormat)
		}

		env, err := initLookup(ctx, lookupNoCache)
		if err != nil {
			return err
		}
		defer env.Close()

		results := runLookups(ctx, env.Service, args, cfg.Lookup.Concurrency)
		if err := writeResults(os.Stdout, results, lookupFormat); err != nil {
			return err
		}

		if n := countFailed(results); n > 0 {
			return eris.Errorf("lookup: %d of %d failed", n, len(results))
		}
		return nil
	},
}

// lookupResult is one argument's outcome in CLI output.
type lookupResult struct {
	Input   string         `json:"input" yaml:"input"`
	Success bool           `json:"success" yaml:"success"`
	Origin  model.Origin   `json:"origin,omitempty" yaml:"origin,omitempty"`
	Data    *model.Record  `json:"data,omitempty" yaml:"data,omitempty"`
	Error   *api.ErrorBody `json:"error,omitempty" yaml:"error,omitempty"`
}

// runLookups resolves every input concurrently. Results keep input order
// and individual failures never abort the others.
func runLookups(ctx context.Context, svc api.Looker, inputs []string, concurrency int) []lookupResult {
	if concurrency <= 0 {
		concurrency = 1
	}
	results := make([]lookupResult, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, input := range inputs {
		g.Go(func() error {
			res, err := svc.Lookup(gctx, input)
			if err != nil {
				zap.L().Debug("lookup failed", zap.String("input", input), zap.Error(err))
			}
			_, body := api.NewResponse(res, err)
			results[i] = lookupResult{
				Input:   input,
				Success: body.Success,
				Origin:  body.Origin,
				Data:    body.Data,
				Error:   body.Error,
			}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func countFailed(results []lookupResult) int {
	n := 0
	for _, r := range results {
		if !r.Success {
			n++
		}
	}
	return n
}

// writeResults prints a single result as an object and several as a list.
func writeResults(w io.Writer, results []lookupResult, format string) error {
	var v any = results
	if len(results) == 1 {
		v = results[0]
	}

	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return eris.Wrap(err, "lookup: encode yaml")
		}
		return eris.Wrap(enc.Close(), "lookup: flush yaml")
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(v), "lookup: encode json")
	default:
		return eris.Errorf("lookup: unsupported format %q", format)
	}
}

func init() {
	lookupCmd.Flags().StringVar(&lookupFormat, "format", "json", "output format: json or yaml")
	lookupCmd.Flags().BoolVar(&lookupNoCache, "no-cache", false, "bypass the cache for this run")
	rootCmd.AddCommand(lookupCmd)
}
