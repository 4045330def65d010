package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/phin-cmd/Crane-Intelligence-sub002/internal/model"
	"github.com/phin-cmd/Crane-Intelligence-sub002/internal/narrative"
)

var (
	valueManufacturer string
	valueModel        string
	valueYear         int
	valueHours        float64
	valueCapacity     float64
	valueType         string
	valueRegion       string
	valueAsking       float64
	valueFleet        string
	valueConcurrency  int
	valueNarrative    bool
	valueSave         bool
	valueSource       string
	valueOutput       string
)

var valueCmd = &cobra.Command{
	Use:   "value",
	Short: "Value a crane asset or a fleet",
	Long:  "Computes fair market value with depreciation and deal scoring for a single asset from flags, or for a fleet CSV with --fleet.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := validateFormat(valueOutput); err != nil {
			return err
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if _, err := runCalibration(ctx, env, valueSource); err != nil {
			return err
		}

		gen, err := narrativeGenerator()
		if err != nil {
			return err
		}

		if valueFleet != "" {
			return runFleet(ctx, env, gen)
		}

		report, err := buildReport(ctx, env, gen, model.ValuationInput{
			Manufacturer:  valueManufacturer,
			Model:         valueModel,
			Year:          valueYear,
			Hours:         valueHours,
			Capacity:      valueCapacity,
			EquipmentType: valueType,
			Region:        valueRegion,
			AskingPrice:   valueAsking,
		})
		if err != nil {
			return err
		}

		if valueOutput == formatJSON {
			return renderJSON(os.Stdout, report)
		}
		formatReport(os.Stdout, report)
		return nil
	},
}

// narrativeGenerator returns nil when --narrative is off.
func narrativeGenerator() (*narrative.Generator, error) {
	if !valueNarrative {
		return nil, nil
	}
	if cfg.Anthropic.Key == "" {
		return nil, eris.New("--narrative requires anthropic.key in config or CRANE_INTEL_ANTHROPIC_KEY")
	}
	client := narrative.NewClient(cfg.Anthropic.Key)
	return narrative.NewGenerator(client, cfg.Anthropic.Model, int64(cfg.Anthropic.MaxTokens)), nil
}

func buildReport(ctx context.Context, env *cliEnv, gen *narrative.Generator, in model.ValuationInput) (*model.ValuationReport, error) {
	result, err := env.vals.Value(in)
	if err != nil {
		return nil, err
	}

	report := &model.ValuationReport{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Input:     in,
		Result:    *result,
	}

	if gen != nil {
		text, err := gen.Summarize(ctx, report)
		if err != nil {
			return nil, eris.Wrap(err, "generate narrative")
		}
		report.Narrative = text
	}

	if valueSave {
		if err := env.store.SaveValuationReport(ctx, report); err != nil {
			return nil, eris.Wrap(err, "save report")
		}
	}
	return report, nil
}

func runFleet(ctx context.Context, env *cliEnv, gen *narrative.Generator) error {
	f, err := os.Open(valueFleet)
	if err != nil {
		return eris.Wrapf(err, "open fleet file %s", valueFleet)
	}
	defer f.Close() //nolint:errcheck

	inputs, err := parseFleetCSV(f)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		fmt.Fprintln(os.Stderr, "No assets in fleet file.")
		return nil
	}

	reports := make([]*model.ValuationReport, len(inputs))
	var mu sync.Mutex

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(valueConcurrency)
	for i, in := range inputs {
		g.Go(func() error {
			report, err := buildReport(gCtx, env, gen, in)
			if err != nil {
				return eris.Wrapf(err, "value %s %s", in.Manufacturer, in.Model)
			}
			mu.Lock()
			reports[i] = report
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	switch valueOutput {
	case formatJSON:
		return renderJSON(os.Stdout, reports)
	case formatCSV:
		return writeCSV(os.Stdout, fleetCSVHeader, fleetCSVRows(reports))
	}
	formatFleet(os.Stdout, reports)
	return nil
}

// parseFleetCSV reads asset rows with a header line. Column order is free;
// hours and asking_price are optional.
func parseFleetCSV(r io.Reader) ([]model.ValuationInput, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, eris.Wrap(err, "read fleet header")
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"manufacturer", "model", "year", "capacity_tons", "equipment_type", "region"} {
		if _, ok := cols[required]; !ok {
			return nil, eris.Errorf("fleet file missing column %q", required)
		}
	}

	field := func(record []string, name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	var inputs []model.ValuationInput
	for rowNum := 2; ; rowNum++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "fleet row %d", rowNum)
		}

		year, err := strconv.Atoi(field(record, "year"))
		if err != nil {
			return nil, eris.Errorf("fleet row %d: bad year %q", rowNum, field(record, "year"))
		}
		capacity, err := strconv.ParseFloat(field(record, "capacity_tons"), 64)
		if err != nil {
			return nil, eris.Errorf("fleet row %d: bad capacity_tons %q", rowNum, field(record, "capacity_tons"))
		}

		in := model.ValuationInput{
			Manufacturer:  field(record, "manufacturer"),
			Model:         field(record, "model"),
			Year:          year,
			Capacity:      capacity,
			EquipmentType: field(record, "equipment_type"),
			Region:        field(record, "region"),
		}
		if s := field(record, "hours"); s != "" {
			if in.Hours, err = strconv.ParseFloat(s, 64); err != nil {
				return nil, eris.Errorf("fleet row %d: bad hours %q", rowNum, s)
			}
		}
		if s := field(record, "asking_price"); s != "" {
			if in.AskingPrice, err = strconv.ParseFloat(s, 64); err != nil {
				return nil, eris.Errorf("fleet row %d: bad asking_price %q", rowNum, s)
			}
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

func formatReport(w io.Writer, report *model.ValuationReport) {
	in, res := report.Input, report.Result

	tw := newTable(w)
	fmt.Fprintf(tw, "Asset\t%d %s %s\n", in.Year, in.Manufacturer, in.Model)
	fmt.Fprintf(tw, "Segment\t%s / %s, %.0f t\n", res.BareRate.Region, res.BareRate.EquipmentType, in.Capacity)
	fmt.Fprintf(tw, "Hours\t%.0f\n", in.Hours)
	fmt.Fprintf(tw, "Fair market value\t%s\n", formatMoney(res.FairMarketValue))
	fmt.Fprintf(tw, "Base value\t%s\n", formatMoney(res.BaseValue))
	fmt.Fprintf(tw, "Depreciation\t%.2f (effective age %.1f years)\n", res.DepreciationFactor, res.EffectiveAgeYears)
	fmt.Fprintf(tw, "Bare rate\t%s/mo (%s)\n", formatMoney(res.BareRate.MonthlyRate), res.BareRate.Path)
	fmt.Fprintf(tw, "Operated rate\t%s/mo\n", formatMoney(res.OperatedRate.MonthlyRate))
	if res.DealScore != nil {
		fmt.Fprintf(tw, "Asking price\t%s\n", formatMoney(in.AskingPrice))
		fmt.Fprintf(tw, "Deal score\t%.0f/100\n", *res.DealScore)
	}
	tw.Flush() //nolint:errcheck

	if report.Narrative != "" {
		fmt.Fprintf(w, "\n%s\n", report.Narrative)
	}
}

var fleetCSVHeader = []string{
	"manufacturer", "model", "year", "capacity_tons", "region", "equipment_type",
	"fair_market_value", "deal_score",
}

func fleetCSVRows(reports []*model.ValuationReport) [][]string {
	rows := make([][]string, 0, len(reports))
	for _, r := range reports {
		score := ""
		if r.Result.DealScore != nil {
			score = strconv.FormatFloat(*r.Result.DealScore, 'f', 0, 64)
		}
		rows = append(rows, []string{
			r.Input.Manufacturer,
			r.Input.Model,
			strconv.Itoa(r.Input.Year),
			strconv.FormatFloat(r.Input.Capacity, 'f', 0, 64),
			r.Result.BareRate.Region,
			r.Result.BareRate.EquipmentType,
			strconv.FormatFloat(r.Result.FairMarketValue, 'f', 2, 64),
			score,
		})
	}
	return rows
}

func formatFleet(w io.Writer, reports []*model.ValuationReport) {
	tw := newTable(w)
	fmt.Fprintln(tw, "ASSET\tCAPACITY\tFMV\tDEAL")
	totalFMV := decimal.Zero
	for _, r := range reports {
		score := "-"
		if r.Result.DealScore != nil {
			score = fmt.Sprintf("%.0f", *r.Result.DealScore)
		}
		fmt.Fprintf(tw, "%d %s %s\t%.0f t\t%s\t%s\n",
			r.Input.Year, r.Input.Manufacturer, r.Input.Model,
			r.Input.Capacity, formatMoney(r.Result.FairMarketValue), score)
		totalFMV = totalFMV.Add(decimal.NewFromFloat(r.Result.FairMarketValue))
	}
	fmt.Fprintf(tw, "TOTAL (%d assets)\t\t$%s\t\n", len(reports), totalFMV.StringFixed(2))
	tw.Flush() //nolint:errcheck
}

func init() {
	valueCmd.Flags().StringVar(&valueManufacturer, "manufacturer", "", "asset manufacturer")
	valueCmd.Flags().StringVar(&valueModel, "model", "", "asset model")
	valueCmd.Flags().IntVar(&valueYear, "year", 0, "model year")
	valueCmd.Flags().Float64Var(&valueHours, "hours", 0, "meter hours")
	valueCmd.Flags().Float64Var(&valueCapacity, "capacity", 0, "lifting capacity in tons")
	valueCmd.Flags().StringVar(&valueType, "type", "", "equipment type")
	valueCmd.Flags().StringVar(&valueRegion, "region", "", "market region")
	valueCmd.Flags().Float64Var(&valueAsking, "asking", 0, "asking price for deal scoring")
	valueCmd.Flags().StringVar(&valueFleet, "fleet", "", "CSV of assets to value instead of flags")
	valueCmd.Flags().IntVar(&valueConcurrency, "concurrency", 4, "parallel valuations for --fleet")
	valueCmd.Flags().BoolVar(&valueNarrative, "narrative", false, "generate an executive summary via the Anthropic API")
	valueCmd.Flags().BoolVar(&valueSave, "save", false, "persist reports to the store")
	valueCmd.Flags().StringVar(&valueSource, "source", "", "reference data source (default from config, then the store)")
	valueCmd.Flags().StringVar(&valueOutput, "output", formatTable, "output format: table, csv, or json")
	rootCmd.AddCommand(valueCmd)
}
