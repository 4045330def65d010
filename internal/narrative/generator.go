package narrative

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/phin-cmd/Crane-Intelligence-sub002/internal/model"
)

const systemPrompt = "You are an equipment finance analyst. Write a concise, " +
	"factual executive summary of a crane valuation for a buyer. Two short " +
	"paragraphs at most. Use only the figures provided; do not invent data."

// Generator turns a valuation report into a prose summary.
type Generator struct {
	client    Client
	model     string
	maxTokens int64
}

// NewGenerator creates a Generator. maxTokens <= 0 defaults to 1024.
func NewGenerator(client Client, modelID string, maxTokens int64) *Generator {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &Generator{client: client, model: modelID, maxTokens: maxTokens}
}

// Summarize generates the executive summary for a report.
func (g *Generator) Summarize(ctx context.Context, report *model.ValuationReport) (string, error) {
	resp, err := g.client.CreateMessage(ctx, MessageRequest{
		Model:     g.model,
		MaxTokens: g.maxTokens,
		System:    systemPrompt,
		Messages:  []Message{{Role: "user", Content: BuildPrompt(report)}},
	})
	if err != nil {
		return "", eris.Wrap(err, "narrative: summarize")
	}
	resp.Usage.LogCost(g.model)

	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return "", eris.New("narrative: empty completion")
	}
	return text, nil
}

// BuildPrompt renders the report facts in a fixed field order so the same
// report always produces the same prompt.
func BuildPrompt(report *model.ValuationReport) string {
	in := report.Input
	res := report.Result

	var b strings.Builder
	b.WriteString("Valuation report:\n")
	fmt.Fprintf(&b, "- Asset: %d %s %s, %s, %.0f t, %s region\n",
		in.Year, in.Manufacturer, in.Model, res.BareRate.EquipmentType, in.Capacity, res.BareRate.Region)
	fmt.Fprintf(&b, "- Hours: %.0f\n", in.Hours)
	fmt.Fprintf(&b, "- Fair market value: $%.0f\n", res.FairMarketValue)
	fmt.Fprintf(&b, "- Base value before depreciation: $%.0f\n", res.BaseValue)
	fmt.Fprintf(&b, "- Depreciation factor: %.2f (effective age %.1f years)\n",
		res.DepreciationFactor, res.EffectiveAgeYears)
	fmt.Fprintf(&b, "- Bare rental rate: $%.0f/month (%s)\n",
		res.BareRate.MonthlyRate, res.BareRate.Path)
	fmt.Fprintf(&b, "- Operated rental rate: $%.0f/month (ratio %.2f)\n",
		res.OperatedRate.MonthlyRate, res.OperatedRate.ModeRatio)
	if in.AskingPrice > 0 && res.DealScore != nil {
		fmt.Fprintf(&b, "- Asking price: $%.0f\n", in.AskingPrice)
		fmt.Fprintf(&b, "- Deal score: %.0f/100\n", math.Round(*res.DealScore))
	}
	return b.String()
}
