package summary

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bom-analyzer/internal/config"
	"github.com/sells-group/bom-analyzer/internal/model"
	"github.com/sells-group/bom-analyzer/pkg/anthropic"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

func part(pn string, composite float64, status model.LineStatus, stock, required int) model.PartAnalysis {
	return model.PartAnalysis{
		Line:           model.BOMLine{PartNumber: pn, QuantityPerUnit: 1},
		RequiredQty:    required,
		Status:         status,
		StockAvailable: stock,
		Risk:           model.RiskScore{Composite: composite, Category: model.CategoryFor(composite)},
	}
}

func sampleReport() *model.Report {
	return &model.Report{
		RunID:      "run-1",
		TotalUnits: 250,
		Parts: []model.PartAnalysis{
			part("LM358DR", 1.2, model.StatusActive, 5000, 500),
			part("NE555P", 7.5, model.StatusEOL, 10, 250),
			part("OBS-1", 8.1, model.StatusDiscontinued, 0, 250),
		},
		Strategies: []model.StrategyAggregate{
			{Strategy: model.StrategyLowestCostStrict, TotalCost: 412.5, TotalDuty: 30, MaxLeadTimeDays: 84},
		},
		KPIs: model.KPIs{Parts: 3, Resolved: 3, BestCostTotal: 412.5, BestCostTariffed: 442.5, TariffImpact: 30, HighRisk: 2, LowRisk: 1, Lifecycle: 2, ZeroStock: 1, StockGaps: 2},
	}
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt(sampleReport())

	assert.Contains(t, p, "building 250 units")
	assert.Contains(t, p, "- Total BOM Cost (best price): $412.50")
	assert.Contains(t, p, "- Total BOM Cost (with tariffs): $442.50")
	assert.Contains(t, p, "- Lowest Cost (Strict): $412.50 total, $30.00 duty, max LT 84 days")
	assert.Contains(t, p, "NE555P, OBS-1")
	assert.Contains(t, p, "Recommended Purchasing Strategy")

	// Highest composite first.
	assert.Less(t, strings.Index(p, "- OBS-1: Risk=8.1"), strings.Index(p, "- NE555P: Risk=7.5"))
	assert.Contains(t, p, "Stock=0/250 needed, LT=unknown, Status=Discontinued, COO=unknown")
	assert.NotContains(t, p, "- LM358DR: Risk")
}

func TestBuildPrompt_Empty(t *testing.T) {
	p := BuildPrompt(&model.Report{TotalUnits: 1})
	assert.Equal(t, 3, strings.Count(p, "None\n"))
}

func TestBuildPrompt_CapsHighRisk(t *testing.T) {
	r := &model.Report{}
	for i := range 12 {
		r.Parts = append(r.Parts, part(fmt.Sprintf("P%02d", i), 7+float64(i)/10, model.StatusActive, 0, 1))
	}
	p := BuildPrompt(r)
	assert.Equal(t, maxHighRiskDetail, strings.Count(p, ": Risk="))
	assert.Contains(t, p, "- P11: Risk=8.1")
	assert.NotContains(t, p, "- P00: Risk=")
}

func TestSummarize(t *testing.T) {
	mc := new(mockClient)
	s := New(config.AnthropicConfig{Model: "claude-haiku-4-5-20251001", MaxTokens: 1200}, mc)
	r := sampleReport()

	mc.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.Model == "claude-haiku-4-5-20251001" &&
			req.MaxTokens == 1200 &&
			req.System == systemPrompt &&
			len(req.Messages) == 1 &&
			req.Messages[0].Content == BuildPrompt(r)
	})).Return(&anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: "Executive Summary: replace NE555P."}},
		Usage:   anthropic.TokenUsage{InputTokens: 500, OutputTokens: 80},
	}, nil)

	out, err := s.Summarize(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, "Executive Summary: replace NE555P.", out)
	mc.AssertExpectations(t)
}

func TestSummarize_Errors(t *testing.T) {
	_, err := NewFromConfig(config.AnthropicConfig{}).Summarize(context.Background(), sampleReport())
	assert.True(t, eris.Is(err, ErrNotConfigured))

	mc := new(mockClient)
	mc.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, eris.New("boom")).Once()
	_, err = New(config.AnthropicConfig{}, mc).Summarize(context.Background(), sampleReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "summary: create message")

	mc.On("CreateMessage", mock.Anything, mock.Anything).Return(&anthropic.MessageResponse{}, nil).Once()
	_, err = New(config.AnthropicConfig{}, mc).Summarize(context.Background(), sampleReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty response")
}
