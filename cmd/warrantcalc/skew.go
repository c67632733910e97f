package main

import (
	"fmt"

	"WarrantCalc/internal/domain/models"

	"github.com/spf13/cobra"
)

func newSkewCmd(opts *rootOptions) *cobra.Command {
	req := models.SkewRequest{}
	cmd := &cobra.Command{
		Use:     "skew",
		Short:   "Skew-adjust an ATM volatility for one strike",
		Example: "  warrantcalc skew --type put --spot 100 --strike 85 --days 30 --atm-vol 22",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.service()
			if err != nil {
				return err
			}
			res, err := svc.AdjustVol(cmd.Context(), req)
			if err != nil {
				return err
			}
			rows := append([][]string{
				{"years", f4(res.Years)},
				{"moneyness ln(S/K)", f4(res.Moneyness)},
				{"atm vol %", f4(res.AtmVol)},
				{"adjusted vol %", f4(res.Vol)},
			}, skewRows(res.Parameters)...)
			return opts.print(cmd.OutOrStdout(), res, []string{"Field", "Value"}, rows)
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.Type, "type", "put", "call or put")
	f.Float64Var(&req.Spot, "spot", 0, "underlying price")
	f.Float64Var(&req.Strike, "strike", 0, "strike price")
	f.Float64Var(&req.Days, "days", 0, "calendar days to expiry")
	f.StringVar(&req.Expiry, "expiry", "", "expiry date; overrides --days")
	f.Float64Var(&req.AtmVol, "atm-vol", 0, "at-the-money volatility in percent")
	_ = cmd.MarkFlagRequired("spot")
	_ = cmd.MarkFlagRequired("strike")
	_ = cmd.MarkFlagRequired("atm-vol")
	return cmd
}

func newSmileCmd(opts *rootOptions) *cobra.Command {
	req := models.SmileRequest{}
	cmd := &cobra.Command{
		Use:     "smile",
		Short:   "Evaluate the skew over a strike grid",
		Example: "  warrantcalc smile --type put --spot 100 --strikes 80,90,100,110,120 --days 60 --atm-vol 20",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.service()
			if err != nil {
				return err
			}
			res, err := svc.Smile(cmd.Context(), req)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(res.Points))
			for _, p := range res.Points {
				rows = append(rows, []string{
					fmt.Sprintf("%.2f", p.Strike),
					f4(p.Moneyness),
					f4(p.Vol),
					fmt.Sprintf("%.3f", p.Vol/res.AtmVol),
				})
			}
			return opts.print(cmd.OutOrStdout(), res, []string{"Strike", "ln(S/K)", "Vol %", "x ATM"}, rows)
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.Type, "type", "put", "call or put")
	f.Float64Var(&req.Spot, "spot", 0, "underlying price")
	f.Float64SliceVar(&req.Strikes, "strikes", nil, "comma separated strikes")
	f.Float64Var(&req.Days, "days", 0, "calendar days to expiry")
	f.StringVar(&req.Expiry, "expiry", "", "expiry date; overrides --days")
	f.Float64Var(&req.AtmVol, "atm-vol", 0, "at-the-money volatility in percent")
	_ = cmd.MarkFlagRequired("spot")
	_ = cmd.MarkFlagRequired("strikes")
	_ = cmd.MarkFlagRequired("atm-vol")
	return cmd
}
