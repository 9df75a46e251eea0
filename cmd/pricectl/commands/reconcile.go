package commands

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pricelens/backend/config"
	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/usecase"
)

type reconcileOptions struct {
	query     string
	product   string
	margin    float64
	platforms []string
	quote     float64
	asJSON    bool
}

func newReconcileCmd(rt *runtime) *cobra.Command {
	opts := &reconcileOptions{}

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Find the ceiling price for a product",
		Example: `  pricectl reconcile --query "berapa harga Ruijie RAP2200?"
  pricectl reconcile --product "ruijie rap2200" --platform tokopedia --platform "Summary Solution" --quote 1150000`,
		RunE: rt.run(func(cmd *cobra.Command, args []string) error {
			return runReconcile(cmd, rt, opts)
		}),
	}

	cmd.Flags().StringVarP(&opts.query, "query", "q", "", "free-text question mentioning the product")
	cmd.Flags().StringVarP(&opts.product, "product", "p", "", "product name, skips extraction")
	cmd.Flags().Float64VarP(&opts.margin, "margin", "m", -1, "margin in [0, 0.5] (default from config)")
	cmd.Flags().StringArrayVar(&opts.platforms, "platform", nil, "platform to consult, repeatable (default from config)")
	cmd.Flags().Float64Var(&opts.quote, "quote", -1, "vendor quoted price to judge")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the result as JSON")
	cmd.MarkFlagsMutuallyExclusive("query", "product")
	cmd.MarkFlagsOneRequired("query", "product")

	return cmd
}

func runReconcile(cmd *cobra.Command, rt *runtime, opts *reconcileOptions) error {
	margin := rt.cfg.Pricing.DefaultMargin
	if cmd.Flags().Changed("margin") {
		margin = opts.margin
	}
	if math.IsNaN(margin) || margin < 0 || margin > config.MaxMargin {
		return fmt.Errorf("margin must be between 0 and %.1f", config.MaxMargin)
	}

	platforms := rt.services.Platforms
	if len(opts.platforms) > 0 {
		platforms = make([]domain.Platform, 0, len(opts.platforms))
		for _, name := range opts.platforms {
			p, err := domain.ParsePlatform(name)
			if err != nil {
				return fmt.Errorf("platform %q: %w", name, err)
			}
			platforms = append(platforms, p)
		}
	}

	var quote *float64
	if cmd.Flags().Changed("quote") {
		if math.IsNaN(opts.quote) || math.IsInf(opts.quote, 0) || opts.quote < 0 {
			return fmt.Errorf("quote must be a finite non-negative price")
		}
		quote = &opts.quote
	}

	var (
		result *domain.ReconciliationResult
		err    error
	)
	if strings.TrimSpace(opts.product) != "" {
		result, err = rt.services.Reconciler.Reconcile(cmd.Context(), &usecase.ReconcileRequest{
			ProductName: strings.TrimSpace(opts.product),
			Margin:      margin,
			Platforms:   platforms,
			QuotedPrice: quote,
		})
	} else {
		result, err = rt.services.Reconciler.Research(cmd.Context(), opts.query, margin, platforms, quote)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	_, err = fmt.Fprint(out, usecase.FormatReconciliation(result))
	return err
}
