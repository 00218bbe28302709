// Package api serves the analyzer over HTTP.
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bom-analyzer/internal/analysis"
	"github.com/sells-group/bom-analyzer/internal/bom"
	"github.com/sells-group/bom-analyzer/internal/config"
	"github.com/sells-group/bom-analyzer/internal/export"
	"github.com/sells-group/bom-analyzer/internal/metrics"
	"github.com/sells-group/bom-analyzer/internal/model"
	"github.com/sells-group/bom-analyzer/internal/summary"
	"github.com/sells-group/bom-analyzer/internal/supplier"
)

// Server holds the dependencies shared by all requests.
type Server struct {
	cfg        *config.Config
	fetcher    supplier.Fetcher
	metrics    *metrics.Metrics
	summarizer *summary.Summarizer
}

// Option configures a Server.
type Option func(*Server)

// WithFetcher sets the fetcher used when a request carries no inline offers.
func WithFetcher(f supplier.Fetcher) Option {
	return func(s *Server) { s.fetcher = f }
}

// WithSummarizer enables narrative summaries on request.
func WithSummarizer(sum *summary.Summarizer) Option {
	return func(s *Server) { s.summarizer = sum }
}

// New builds a Server. m may be nil, in which case /metrics is not mounted.
func New(cfg *config.Config, m *metrics.Metrics, opts ...Option) *Server {
	s := &Server{cfg: cfg, metrics: m}
	for _, o := range opts {
		o(s)
	}
	return s
}

// AnalyzeRequest is the body of POST /v1/analyze.
type AnalyzeRequest struct {
	Lines []model.BOMLine `json:"lines"`
	// Analysis overrides individual analysis settings; omitted fields keep
	// the server's configuration.
	Analysis json.RawMessage `json:"analysis,omitempty"`
	// Offers are pre-fetched canonical offers keyed by part number. When set,
	// no supplier is called.
	Offers  map[string][]map[string]any `json:"offers,omitempty"`
	Summary bool                        `json:"summary,omitempty"`
}

// AnalyzeResponse is the body returned by POST /v1/analyze.
type AnalyzeResponse struct {
	Report       *model.Report `json:"report"`
	Issues       []bom.Issue   `json:"issues,omitempty"`
	Summary      string        `json:"summary,omitempty"`
	SummaryError string        `json:"summary_error,omitempty"`
}

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/analyze", s.handleAnalyze)
		r.Post("/bom/parse", s.handleParseBOM)
		r.Get("/bom/template", handleTemplate)
	})
	return r
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	lines, issues := validLines(req.Lines)
	if len(lines) == 0 {
		writeError(w, http.StatusBadRequest, "no valid BOM lines")
		return
	}

	cfg := *s.cfg
	if len(req.Analysis) > 0 {
		if err := json.Unmarshal(req.Analysis, &cfg.Analysis); err != nil {
			writeError(w, http.StatusBadRequest, "invalid analysis overrides")
			return
		}
	}

	fetcher := s.fetcher
	if len(req.Offers) > 0 {
		fetcher = supplier.NewFixture(supplier.FixtureFile{Parts: req.Offers})
	}
	if fetcher == nil {
		writeError(w, http.StatusBadRequest, "no offers supplied and no supplier configured")
		return
	}

	a, err := analysis.New(&cfg, analysis.WithMetrics(s.metrics))
	if err != nil {
		if eris.Is(err, config.ErrConfigInvalid) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "analysis setup failed")
		return
	}

	report, err := a.Run(r.Context(), lines, fetcher)
	if err != nil {
		zap.L().Warn("api: analysis aborted", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "analysis aborted")
		return
	}

	resp := AnalyzeResponse{Report: report, Issues: issues}
	if req.Summary {
		if s.summarizer == nil {
			resp.SummaryError = summary.ErrNotConfigured.Error()
		} else if text, err := s.summarizer.Summarize(r.Context(), report); err != nil {
			zap.L().Warn("api: summary failed", zap.String("run_id", report.RunID), zap.Error(err))
			resp.SummaryError = "summary unavailable"
		} else {
			resp.Summary = text
		}
	}

	switch strings.ToLower(r.URL.Query().Get("format")) {
	case "", export.FormatJSON:
		writeJSON(w, http.StatusOK, resp)
	case export.FormatCSV:
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="bom_analysis.csv"`)
		if err := export.WriteAnalysisCSV(w, report); err != nil {
			zap.L().Error("api: write csv", zap.Error(err))
		}
	case export.FormatXLSX:
		var buf bytes.Buffer
		if err := export.WriteXLSX(&buf, report); err != nil {
			writeError(w, http.StatusInternalServerError, "xlsx export failed")
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="bom_analysis.xlsx"`)
		_, _ = w.Write(buf.Bytes())
	default:
		writeError(w, http.StatusBadRequest, "unsupported format")
	}
}

func (s *Server) handleParseBOM(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, s.maxBody())
	res, err := bom.ParseCSV(body)
	if err != nil {
		if eris.Is(err, bom.ErrMissingColumns) {
			writeError(w, http.StatusUnprocessableEntity, "CSV must have 'Part Number' and 'Quantity' columns")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid CSV")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func handleTemplate(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="bom_template.csv"`)
	if err := bom.WriteCSV(w, bom.Template()); err != nil {
		zap.L().Error("api: write template", zap.Error(err))
	}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBody()))
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return eris.New("request body too large")
		}
		return eris.New("invalid request body")
	}
	return nil
}

func (s *Server) maxBody() int64 {
	if s.cfg.Server.MaxBodyBytes > 0 {
		return s.cfg.Server.MaxBodyBytes
	}
	return 10 << 20
}

// validLines drops lines the engine cannot price and reports them as issues.
// Row numbers are 1-based positions in the request.
func validLines(in []model.BOMLine) ([]model.BOMLine, []bom.Issue) {
	var out []model.BOMLine
	var issues []bom.Issue
	for i, l := range in {
		l.PartNumber = strings.TrimSpace(l.PartNumber)
		switch {
		case l.PartNumber == "":
			issues = append(issues, bom.Issue{Row: i + 1, Reason: "blank part number"})
		case l.QuantityPerUnit <= 0:
			issues = append(issues, bom.Issue{Row: i + 1, Reason: l.PartNumber + ": quantity must be positive"})
		default:
			out = append(out, l)
		}
	}
	return out, issues
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
