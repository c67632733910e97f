package main

import (
	"fmt"

	"WarrantCalc/internal/domain/models"

	"github.com/spf13/cobra"
)

func newPriceCmd(opts *rootOptions) *cobra.Command {
	req := models.PriceRequest{}
	cmd := &cobra.Command{
		Use:   "price",
		Short: "Price a warrant and its Greeks",
		Example: "  warrantcalc price --type put --spot 100 --strike 95 --days 90 --rate 3 --vol 25 --ratio 0.1\n" +
			"  warrantcalc price --type call --spot 42 --strike 40 --expiry 2027-03-19 --vol 20 --skew",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.service()
			if err != nil {
				return err
			}
			q, err := svc.Quote(cmd.Context(), req)
			if err != nil {
				return err
			}

			g := q.Option.Greeks
			rows := [][]string{
				{"years", f4(q.Years)},
				{"vol %", f4(q.Vol)},
				{"option price", f4(q.Option.Price)},
				{"warrant price", q.Warrant.Price.String()},
				{"warrant delta", q.Warrant.Delta.String()},
				{"breakeven", q.Warrant.Breakeven.String()},
				{"premium %", q.Warrant.Premium.String()},
				{"delta", f4(g.Delta)},
				{"gamma", fmt.Sprintf("%.6f", g.Gamma)},
				{"theta /day", f4(g.Theta)},
				{"vega /1%", f4(g.Vega)},
				{"rho /1%", f4(g.Rho)},
			}
			return opts.print(cmd.OutOrStdout(), q, []string{"Field", "Value"}, rows)
		},
	}
	contractFlags(cmd, &req.Contract)
	cmd.Flags().Float64Var(&req.Vol, "vol", 0, "volatility in percent (the ATM level with --skew)")
	cmd.Flags().BoolVar(&req.Skew, "skew", false, "price with the skew-adjusted volatility")
	_ = cmd.MarkFlagRequired("vol")
	return cmd
}

func newIVCmd(opts *rootOptions) *cobra.Command {
	req := models.IVRequest{}
	cmd := &cobra.Command{
		Use:     "iv",
		Short:   "Solve the implied volatility of a quoted warrant",
		Example: "  warrantcalc iv --type call --spot 100 --strike 100 --days 365 --rate 5 --price 1.045 --ratio 0.1",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.service()
			if err != nil {
				return err
			}
			res, err := svc.ImpliedVol(cmd.Context(), req)
			if err != nil {
				return err
			}
			rows := [][]string{
				{"years", f4(res.Years)},
				{"option price", f4(res.OptionPrice)},
				{"implied vol %", f4(res.Vol)},
				{"iterations", fmt.Sprintf("%d", res.Iterations)},
				{"residual", fmt.Sprintf("%.2e", res.Residual)},
			}
			return opts.print(cmd.OutOrStdout(), res, []string{"Field", "Value"}, rows)
		},
	}
	contractFlags(cmd, &req.Contract)
	cmd.Flags().Float64Var(&req.Price, "price", 0, "warrant market price")
	_ = cmd.MarkFlagRequired("price")
	return cmd
}
