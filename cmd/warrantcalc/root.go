package main

import (
	"encoding/json"
	"fmt"
	"io"

	"WarrantCalc/internal/domain/models"
	"WarrantCalc/internal/pricing"
	"WarrantCalc/internal/usecase"
	"WarrantCalc/pkg/config"
	"WarrantCalc/pkg/metrics"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	jsonOut    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "warrantcalc",
		Short:         "Black-Scholes-Merton warrant pricing toolkit",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config; its skew section overrides the default calibration")
	cmd.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "print JSON instead of a table")

	cmd.AddCommand(
		newPriceCmd(opts),
		newIVCmd(opts),
		newSkewCmd(opts),
		newSmileCmd(opts),
		newBatchCmd(opts),
	)
	return cmd
}

// loadConfig returns the configured settings, or defaults without --config.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	if o.configPath == "" {
		return config.Default(), nil
	}
	cfg, err := config.LoadWithEnv(o.configPath)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func (o *rootOptions) service() (*usecase.PricingService, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	sp, err := cfg.SkewParameters()
	if err != nil {
		return nil, err
	}
	return usecase.NewPricingService(sp, metrics.Nop{}), nil
}

// contractFlags binds the flags shared by price and iv.
func contractFlags(cmd *cobra.Command, c *models.Contract) {
	f := cmd.Flags()
	f.StringVar(&c.Type, "type", "call", "call or put")
	f.Float64Var(&c.Spot, "spot", 0, "underlying price")
	f.Float64Var(&c.Strike, "strike", 0, "strike price")
	f.Float64Var(&c.Days, "days", 0, "calendar days to expiry")
	f.StringVar(&c.Expiry, "expiry", "", "expiry date (YYYY-MM-DD or RFC3339); overrides --days")
	f.Float64Var(&c.Rate, "rate", 0, "risk-free rate in percent")
	f.Float64Var(&c.Dividend, "dividend", 0, "dividend yield in percent")
	f.Float64Var(&c.Ratio, "ratio", 1, "conversion ratio (options per warrant)")
	_ = cmd.MarkFlagRequired("spot")
	_ = cmd.MarkFlagRequired("strike")
}

func (o *rootOptions) print(w io.Writer, v interface{}, header []string, rows [][]string) error {
	if o.jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	renderTable(w, header, rows)
	return nil
}

func renderTable(w io.Writer, header []string, rows [][]string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.AppendBulk(rows)
	table.Render()
}

func f4(v float64) string { return fmt.Sprintf("%.4f", v) }

func skewRows(sp pricing.SkewParameters) [][]string {
	return [][]string{
		{"put intensity", f4(sp.PutSkewIntensity)},
		{"call intensity", f4(sp.CallSkewIntensity)},
		{"smile curvature", f4(sp.SmileCurvature)},
		{"time decay exponent", f4(sp.TimeDecayExponent)},
		{"itm damping", f4(sp.ITMDamping)},
		{"vol ratio bounds", fmt.Sprintf("[%s, %s]", f4(sp.MinVolRatio), f4(sp.MaxVolRatio))},
	}
}
