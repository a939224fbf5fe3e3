package service

import (
	"context"
	"net/http"
	"time"

	"options_analyzer/internal/evaluator"
	"options_analyzer/internal/metrics"
	"options_analyzer/internal/models"
	"options_analyzer/internal/modules/config"
	"options_analyzer/internal/runner"
	"options_analyzer/pkg/logger"

	"github.com/bytedance/sonic"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
)

const maxBodyBytes = 1 << 20

// Analyzer runs one analysis.
type Analyzer interface {
	Run(ctx context.Context, req models.AnalysisRequest, source string) (models.Analysis, error)
}

type positionDTO struct {
	Ticker  string  `json:"ticker"`
	Call1BE float64 `json:"call1_be"`
	Call2BE float64 `json:"call2_be"`
	Put1BE  float64 `json:"put1_be"`
	Put2BE  float64 `json:"put2_be"`
	Expiry  string  `json:"expiry"` // YYYY-MM-DD
}

type analyzeRequest struct {
	Positions      []positionDTO `json:"positions"`
	PortfolioValue *float64      `json:"portfolio_value"`
}

type analyzeResponse struct {
	models.Analysis
	Rows []models.ResultRow `json:"rows"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// API serves the JSON analysis endpoint.
type API struct {
	analyzer         Analyzer
	state            *State
	defaultPortfolio float64
}

func NewAPI(cfg *config.Config, analyzer Analyzer, state *State) *API {
	return &API{
		analyzer:         analyzer,
		state:            state,
		defaultPortfolio: cfg.Analysis.DefaultPortfolioValue,
	}
}

// Register mounts the API routes on r.
func (a *API) Register(r *mux.Router) {
	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/analyze", a.analyze).Methods(http.MethodPost)
}

func (a *API) analyze(w http.ResponseWriter, r *http.Request) {
	var body analyzeRequest
	dec := sonic.ConfigDefault.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json: " + err.Error()})
		return
	}

	req, err := body.toRequest(a.defaultPortfolio)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	res, err := a.analyzer.Run(r.Context(), req, runner.SourceHTTP)
	switch {
	case errors.Is(err, models.ErrTooManyRows):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		return
	case err != nil:
		logger.Error("[API] analyze: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "analysis failed"})
		return
	}

	a.state.TouchRun(time.Now())
	writeJSON(w, http.StatusOK, analyzeResponse{Analysis: res, Rows: evaluator.Rows(res.Results)})
}

func (b analyzeRequest) toRequest(defaultPortfolio float64) (models.AnalysisRequest, error) {
	req := models.AnalysisRequest{
		Positions:      make([]models.PositionInput, 0, len(b.Positions)),
		PortfolioValue: defaultPortfolio,
	}
	if b.PortfolioValue != nil {
		req.PortfolioValue = *b.PortfolioValue
	}

	for i, p := range b.Positions {
		in := models.PositionInput{
			Ticker:  models.NormTicker(p.Ticker),
			Call1BE: p.Call1BE,
			Call2BE: p.Call2BE,
			Put1BE:  p.Put1BE,
			Put2BE:  p.Put2BE,
		}
		if p.Expiry != "" {
			t, err := time.Parse(config.HistoryDateLayout, p.Expiry)
			if err != nil {
				return models.AnalysisRequest{}, errors.Errorf("positions[%d].expiry %q: want YYYY-MM-DD", i, p.Expiry)
			}
			in.Expiry = t
		} else if !in.Empty() {
			return models.AnalysisRequest{}, errors.Errorf("positions[%d].expiry is required", i)
		}
		req.Positions = append(req.Positions, in)
	}
	return req, nil
}

// instrument logs and times every request.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug("[HTTP] %s %s %s", r.Method, r.URL.Path, time.Since(started))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := sonic.Marshal(v)
	if err != nil {
		logger.Error("[HTTP] encode response: %v", err)
		http.Error(w, "encode error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// NewPublicRouter serves the API.
func NewPublicRouter(api *API) *mux.Router {
	r := mux.NewRouter()
	r.Use(instrument)
	api.Register(r)
	return r
}

// NewAdminRouter serves probes and metrics.
func NewAdminRouter(state *State) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	r.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if !state.Ready() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	}).Methods(http.MethodGet)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"ready":     state.Ready(),
			"uptimeSec": int64(state.Uptime().Seconds()),
			"runs":      state.Runs(),
			"lastRunUnix": func() int64 {
				t := state.LastRun()
				if t.IsZero() {
					return 0
				}
				return t.Unix()
			}(),
		}
		writeJSON(w, http.StatusOK, resp)
	}).Methods(http.MethodGet)

	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	return r
}
