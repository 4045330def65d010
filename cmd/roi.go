package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/phin-cmd/Crane-Intelligence-sub002/internal/model"
	"github.com/phin-cmd/Crane-Intelligence-sub002/internal/roi"
)

var (
	roiCapacity     float64
	roiType         string
	roiRegion       string
	roiPrice        float64
	roiUtilizations string
	roiModes        string
	roiSource       string
	roiOutput       string
)

var roiCmd = &cobra.Command{
	Use:   "roi",
	Short: "Project rental ROI for a purchase",
	Long:  "Projects annual rental revenue, ROI, and payback across utilization and rental-mode scenarios for a purchase price.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := validateFormat(roiOutput); err != nil {
			return err
		}
		scenarios, err := parseScenarios(roiUtilizations, roiModes)
		if err != nil {
			return err
		}
		if len(scenarios) == 0 {
			scenarios = roi.DefaultScenarios()
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if _, err := runCalibration(ctx, env, roiSource); err != nil {
			return err
		}

		results, err := env.roi.Analyze(roiCapacity, roiType, roiRegion, roiPrice, scenarios)
		if err != nil {
			return err
		}

		switch roiOutput {
		case formatJSON:
			return renderJSON(os.Stdout, results)
		case formatCSV:
			return writeCSV(os.Stdout, roiCSVHeader, roiCSVRows(results))
		}
		formatROI(os.Stdout, results)
		return nil
	},
}

// parseScenarios builds the scenario grid from comma-separated flag values.
// Both flags empty means the caller wants the default grid.
func parseScenarios(utilizations, modes string) ([]model.ROIScenario, error) {
	if utilizations == "" && modes == "" {
		return nil, nil
	}

	utils := []float64{0.50, 0.70, 0.85, 0.95}
	if utilizations != "" {
		utils = utils[:0]
		for _, s := range strings.Split(utilizations, ",") {
			u, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return nil, eris.Errorf("bad utilization %q", s)
			}
			utils = append(utils, u)
		}
	}

	rentalModes := []model.RentalMode{model.ModeBare, model.ModeOperated}
	if modes != "" {
		rentalModes = rentalModes[:0]
		for _, s := range strings.Split(modes, ",") {
			mode, err := model.ParseRentalMode(s)
			if err != nil {
				return nil, err
			}
			rentalModes = append(rentalModes, mode)
		}
	}

	scenarios := make([]model.ROIScenario, 0, len(utils)*len(rentalModes))
	for _, mode := range rentalModes {
		for _, u := range utils {
			scenarios = append(scenarios, model.ROIScenario{UtilizationRate: u, Mode: mode})
		}
	}
	return scenarios, nil
}

var roiCSVHeader = []string{
	"mode", "utilization", "monthly_rate", "annual_revenue", "roi_percent", "payback_years",
}

func roiCSVRows(results []model.ROIResult) [][]string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		payback := ""
		if !math.IsInf(r.PaybackYears, 0) {
			payback = strconv.FormatFloat(r.PaybackYears, 'f', 2, 64)
		}
		rows = append(rows, []string{
			string(r.Scenario.Mode),
			strconv.FormatFloat(r.Scenario.UtilizationRate, 'f', 2, 64),
			strconv.FormatFloat(r.MonthlyRate, 'f', 2, 64),
			strconv.FormatFloat(r.AnnualRevenue, 'f', 2, 64),
			strconv.FormatFloat(r.ROIPercent, 'f', 1, 64),
			payback,
		})
	}
	return rows
}

func formatROI(w io.Writer, results []model.ROIResult) {
	tw := newTable(w)
	fmt.Fprintln(tw, "MODE\tUTIL\tMONTHLY\tANNUAL\tROI\tPAYBACK")
	for _, r := range results {
		payback := "-"
		if !math.IsInf(r.PaybackYears, 0) {
			payback = fmt.Sprintf("%.1fy", r.PaybackYears)
		}
		fmt.Fprintf(tw, "%s\t%.0f%%\t%s\t%s\t%s\t%s\n",
			r.Scenario.Mode,
			r.Scenario.UtilizationRate*100,
			formatMoney(r.MonthlyRate),
			formatMoney(r.AnnualRevenue),
			formatPercent(r.ROIPercent),
			payback,
		)
	}
	tw.Flush() //nolint:errcheck
}

func init() {
	roiCmd.Flags().Float64Var(&roiCapacity, "capacity", 0, "lifting capacity in tons (required)")
	roiCmd.Flags().StringVar(&roiType, "type", "", "equipment type (required)")
	roiCmd.Flags().StringVar(&roiRegion, "region", "", "market region (required)")
	roiCmd.Flags().Float64Var(&roiPrice, "price", 0, "purchase price (required)")
	roiCmd.Flags().StringVar(&roiUtilizations, "utilizations", "", "comma-separated utilization rates, e.g. 0.5,0.7 (default grid)")
	roiCmd.Flags().StringVar(&roiModes, "modes", "", "comma-separated rental modes: bare,operated (default both)")
	roiCmd.Flags().StringVar(&roiSource, "source", "", "reference data source (default from config, then the store)")
	roiCmd.Flags().StringVar(&roiOutput, "output", formatTable, "output format: table, csv, or json")
	roiCmd.MarkFlagRequired("capacity") //nolint:errcheck
	roiCmd.MarkFlagRequired("type")     //nolint:errcheck
	roiCmd.MarkFlagRequired("region")   //nolint:errcheck
	roiCmd.MarkFlagRequired("price")    //nolint:errcheck
	rootCmd.AddCommand(roiCmd)
}
