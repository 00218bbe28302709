package supplier

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bom-analyzer/internal/config"
	"github.com/sells-group/bom-analyzer/internal/metrics"
	"github.com/sells-group/bom-analyzer/internal/model"
	"github.com/sells-group/bom-analyzer/internal/normalize"
	"github.com/sells-group/bom-analyzer/internal/resilience"
	"github.com/sells-group/bom-analyzer/pkg/mouser"
)

type mockSource struct {
	mock.Mock
	name model.Source
}

func (m *mockSource) Name() model.Source { return m.name }

func (m *mockSource) Search(ctx context.Context, partNumber string) ([]byte, error) {
	args := m.Called(ctx, partNumber)
	body, _ := args.Get(0).([]byte)
	return body, args.Error(1)
}

type mockMouserClient struct {
	mock.Mock
}

func (m *mockMouserClient) SearchPartNumber(ctx context.Context, partNumber string) ([]byte, error) {
	args := m.Called(ctx, partNumber)
	body, _ := args.Get(0).([]byte)
	return body, args.Error(1)
}

func TestLive_FetchKeepsSourceOrder(t *testing.T) {
	a := &mockSource{name: model.SourceMouser}
	a.On("Search", mock.Anything, "LM358DR").Return([]byte(`{"a":1}`), nil)
	b := &mockSource{name: model.SourceNexar}
	b.On("Search", mock.Anything, "LM358DR").Return(nil, errors.New("unauthorized"))

	m := metrics.New()
	l := NewLive([]Source{a, b}, WithMaxRetries(2), WithMetrics(m), WithRate(model.SourceMouser, 100), WithRate(model.SourceNexar, 100))
	raws := l.Fetch(context.Background(), model.BOMLine{PartNumber: "LM358DR"})

	require.Len(t, raws, 2)
	assert.Equal(t, model.SourceMouser, raws[0].Source)
	assert.JSONEq(t, `{"a":1}`, string(raws[0].Body))
	assert.NoError(t, raws[0].Err)
	assert.Equal(t, model.SourceNexar, raws[1].Source)
	assert.Error(t, raws[1].Err)
	assert.Equal(t, []model.Source{model.SourceMouser, model.SourceNexar}, l.Sources())

	// A permanent error is not retried.
	b.AssertNumberOfCalls(t, "Search", 1)
}

func TestLive_RetriesTransient(t *testing.T) {
	var calls atomic.Int32
	src := &funcSource{name: model.SourceMouser, fn: func() ([]byte, error) {
		if calls.Add(1) < 2 {
			return nil, resilience.NewTransientError(errors.New("busy"), 503)
		}
		return []byte(`{}`), nil
	}}
	l := NewLive([]Source{src}, WithMaxRetries(3), WithRate(model.SourceMouser, 1000))
	l.sources[0].policy.InitialBackoff = time.Millisecond

	raws := l.Fetch(context.Background(), model.BOMLine{PartNumber: "X"})
	require.Len(t, raws, 1)
	assert.NoError(t, raws[0].Err)
	assert.Equal(t, int32(2), calls.Load())
}

type funcSource struct {
	name model.Source
	fn   func() ([]byte, error)
}

func (f *funcSource) Name() model.Source { return f.name }

func (f *funcSource) Search(context.Context, string) ([]byte, error) { return f.fn() }

func TestMouserSource_TransientStatus(t *testing.T) {
	c := &mockMouserClient{}
	c.On("SearchPartNumber", mock.Anything, "X").Return(nil, &mouser.StatusError{StatusCode: 429}).Once()
	c.On("SearchPartNumber", mock.Anything, "Y").Return(nil, &mouser.StatusError{StatusCode: 403}).Once()

	s := NewMouserSource(c)
	_, err := s.Search(context.Background(), "X")
	assert.True(t, resilience.IsTransient(err))
	_, err = s.Search(context.Background(), "Y")
	assert.Error(t, err)
	assert.False(t, resilience.IsTransient(err))
	c.AssertExpectations(t)
}

func TestNewLiveFromConfig(t *testing.T) {
	_, err := NewLiveFromConfig(config.SuppliersConfig{}, nil)
	assert.ErrorIs(t, err, ErrNoSources)

	l, err := NewLiveFromConfig(config.SuppliersConfig{
		Mouser: config.MouserConfig{Key: "k", RatePerSec: 2},
		Nexar:  config.NexarConfig{ClientID: "id", ClientSecret: "s"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []model.Source{model.SourceMouser, model.SourceNexar}, l.Sources())
}

const fixtureYAML = `
parts:
  lm358dr:
    - source: Mouser
      source_part_number: 595-LM358DR
      stock: 1200
      lead_time: 6 weeks
      country_of_origin: Malaysia
      pricing:
        - {qty: 1, unit_price: 0.45}
        - {qty: 100, unit_price: 0.30}
    - source: Nexar
      found: false
      reason: no match
`

func TestFixture_LoadAndFetch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "offers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fixtureYAML), 0o644))

	fx, err := LoadFixture(path)
	require.NoError(t, err)
	assert.Equal(t, []model.Source{model.SourceMouser, model.SourceNexar}, fx.Sources())

	raws := fx.Fetch(context.Background(), model.BOMLine{PartNumber: "LM358DR"})
	require.Len(t, raws, 2)

	found := normalize.Normalize(raws[0])
	require.True(t, found.Found, found.Reason)
	assert.Equal(t, model.SourceMouser, found.Source)
	assert.Equal(t, model.Known(1200), found.Offer.Stock)
	assert.Equal(t, model.Known(42), found.Offer.LeadTimeDays)
	assert.Len(t, found.Offer.Pricing, 2)

	miss := normalize.Normalize(raws[1])
	assert.False(t, miss.Found)
	assert.Equal(t, model.SourceNexar, miss.Source)
	assert.Equal(t, "no match", miss.Reason)

	absent := fx.Fetch(context.Background(), model.BOMLine{PartNumber: "NOPE"})
	require.Len(t, absent, 1)
	assert.False(t, normalize.Normalize(absent[0]).Found)
}

func TestLoadFixture_Errors(t *testing.T) {
	_, err := LoadFixture(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"parts": [`), 0o644))
	_, err = LoadFixture(path)
	assert.Error(t, err)
}

func TestNewFixture_MergesFoldedPartNumbers(t *testing.T) {
	f := FixtureFile{Parts: map[string][]map[string]any{
		"lm358dr":   {{"source": "Nexar", "seller": "Arrow", "stock": 10}},
		"LM358DR":   {{"source": "Mouser", "stock": 5}},
		" LM358DR ": {{"source": "Mouser", "stock": 7}},
	}}

	for range 10 {
		raws := NewFixture(f).Fetch(context.Background(), model.BOMLine{PartNumber: "Lm358dr"})
		require.Len(t, raws, 3)
		// Sorted raw keys: " LM358DR ", "LM358DR", "lm358dr".
		assert.Equal(t, model.Known(7), normalize.Normalize(raws[0]).Offer.Stock)
		assert.Equal(t, model.Known(5), normalize.Normalize(raws[1]).Offer.Stock)
		assert.Equal(t, "Arrow", normalize.Normalize(raws[2]).Offer.Seller)
	}
}
