// Package summary asks a language model for an executive narrative of a
// finished report. The prompt is built only from the report's computed
// values.
package summary

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bom-analyzer/internal/config"
	"github.com/sells-group/bom-analyzer/internal/model"
	"github.com/sells-group/bom-analyzer/pkg/anthropic"
)

// ErrNotConfigured is returned when no model client is available.
var ErrNotConfigured = eris.New("summary: anthropic key not configured")

const systemPrompt = "You are a strategic supply chain advisor specializing in electronic components. " +
	"Provide concise, actionable insights for executive review. " +
	"Focus on risk, cost optimization, and build readiness."

const (
	maxHighRiskDetail = 8
	maxListed         = 10
	temperature       = 0.6
)

// Summarizer produces narrative summaries.
type Summarizer struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// New builds a Summarizer. A nil client is allowed; Summarize then returns
// ErrNotConfigured.
func New(cfg config.AnthropicConfig, client anthropic.Client) *Summarizer {
	return &Summarizer{client: client, model: cfg.Model, maxTokens: cfg.MaxTokens}
}

// NewFromConfig builds a Summarizer with an SDK client when a key is set.
func NewFromConfig(cfg config.AnthropicConfig) *Summarizer {
	var client anthropic.Client
	if cfg.Key != "" {
		client = anthropic.NewClient(cfg.Key)
	}
	return New(cfg, client)
}

// Summarize sends the report prompt to the model and returns its text.
func (s *Summarizer) Summarize(ctx context.Context, r *model.Report) (string, error) {
	if s.client == nil {
		return "", ErrNotConfigured
	}
	temp := temperature
	resp, err := s.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       s.model,
		MaxTokens:   s.maxTokens,
		System:      systemPrompt,
		Messages:    []anthropic.Message{{Role: "user", Content: BuildPrompt(r)}},
		Temperature: &temp,
	})
	if err != nil {
		return "", eris.Wrap(err, "summary: create message")
	}
	resp.Usage.LogCost(s.model, "summary")

	text := resp.Text()
	if text == "" {
		return "", eris.New("summary: empty response")
	}
	zap.L().Info("summary: generated", zap.String("run_id", r.RunID), zap.Int("chars", len(text)))
	return text, nil
}

// BuildPrompt renders the user prompt for a report.
func BuildPrompt(r *model.Report) string {
	k := r.KPIs
	var b strings.Builder

	fmt.Fprintf(&b, "Analyze this BOM for a PCB electronics manufacturing team building %d units.\n\n", r.TotalUnits)

	b.WriteString("SUMMARY METRICS:\n")
	fmt.Fprintf(&b, "- Total Parts: %d\n", k.Parts)
	fmt.Fprintf(&b, "- Valid (with pricing): %d\n", k.Resolved)
	fmt.Fprintf(&b, "- Not Found / No Data: %d\n", k.NotFound)
	fmt.Fprintf(&b, "- Total BOM Cost (best price): $%.2f\n", k.BestCostTotal)
	fmt.Fprintf(&b, "- Total BOM Cost (with tariffs): $%.2f\n", k.BestCostTariffed)
	fmt.Fprintf(&b, "- Tariff Impact: $%.2f\n", k.TariffImpact)
	fmt.Fprintf(&b, "- High Risk Parts (>=%.1f): %d\n", model.HighRiskThreshold, k.HighRisk)
	fmt.Fprintf(&b, "- Moderate Risk Parts (%.1f-%.1f): %d\n", model.ModerateRiskThreshold, model.HighRiskThreshold, k.ModerateRisk)
	fmt.Fprintf(&b, "- Low Risk Parts (<%.1f): %d\n", model.ModerateRiskThreshold, k.LowRisk)
	fmt.Fprintf(&b, "- EOL/Discontinued Parts: %d\n", k.Lifecycle)
	fmt.Fprintf(&b, "- Parts with Zero Stock: %d\n", k.ZeroStock)
	fmt.Fprintf(&b, "- Parts with Stock Gaps: %d\n\n", k.StockGaps)

	b.WriteString("PURCHASING STRATEGIES:\n")
	for _, a := range r.Strategies {
		fmt.Fprintf(&b, "- %s: $%.2f total, $%.2f duty, max LT %d days, %d not found\n",
			a.Strategy, a.TotalCost, a.TotalDuty, a.MaxLeadTimeDays, a.NotFound)
	}

	b.WriteString("\nHIGH RISK PARTS DETAIL:\n")
	high := highRisk(r.Parts)
	if len(high) == 0 {
		b.WriteString("None\n")
	}
	for _, p := range high {
		lead := "unknown"
		if best, ok := p.Selection(model.StrategyLowestCostStrict); ok && best.EffectiveLeadTimeDays.Known {
			lead = fmt.Sprintf("%d days", best.EffectiveLeadTimeDays.Int())
		}
		country := p.Country
		if country == "" {
			country = "unknown"
		}
		fmt.Fprintf(&b, "- %s: Risk=%.1f, Stock=%d/%d needed, LT=%s, Status=%s, COO=%s\n",
			p.Line.PartNumber, p.Risk.Composite, p.StockAvailable, p.RequiredQty, lead, p.Status, country)
	}

	b.WriteString("\nEOL / DISCONTINUED:\n")
	b.WriteString(listParts(r.Parts, func(p model.PartAnalysis) bool {
		return p.Status == model.StatusEOL || p.Status == model.StatusDiscontinued
	}))
	b.WriteString("\nPARTS WITH STOCK GAPS:\n")
	b.WriteString(listParts(r.Parts, func(p model.PartAnalysis) bool {
		return p.StockAvailable < p.RequiredQty
	}))

	b.WriteString(`
Please provide:
1. **Executive Summary** (2-3 sentences)
2. **Critical Risks**: specific parts needing immediate attention
3. **Top 3 Procurement Recommendations**: actionable steps
4. **Cost Optimization Opportunities**
5. **Recommended Purchasing Strategy** and why

Be specific, concise, and actionable. Reference actual part numbers where relevant.`)
	return b.String()
}

// highRisk returns HIGH parts by descending composite, capped for the prompt.
func highRisk(parts []model.PartAnalysis) []model.PartAnalysis {
	var out []model.PartAnalysis
	for _, p := range parts {
		if p.Risk.Category == model.RiskHigh {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Risk.Composite > out[j].Risk.Composite })
	if len(out) > maxHighRiskDetail {
		out = out[:maxHighRiskDetail]
	}
	return out
}

func listParts(parts []model.PartAnalysis, keep func(model.PartAnalysis) bool) string {
	var pns []string
	for _, p := range parts {
		if keep(p) {
			pns = append(pns, p.Line.PartNumber)
		}
		if len(pns) == maxListed {
			break
		}
	}
	if len(pns) == 0 {
		return "None\n"
	}
	return strings.Join(pns, ", ") + "\n"
}
