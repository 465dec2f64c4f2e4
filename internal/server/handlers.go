package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/njchilds90/liesym/internal/cache"
	"github.com/njchilds90/liesym/model"
	"github.com/njchilds90/liesym/symmetry"
)

// ============================================================
// Request / response types
// ============================================================

// AnalyzeRequest names a built-in model or carries a definition. Options
// overlay the server's default ansatz.
type AnalyzeRequest struct {
	Model      string            `json:"model,omitempty"`
	Definition *model.Definition `json:"definition,omitempty"`
	Options    json.RawMessage   `json:"options,omitempty"`
	NoCache    bool              `json:"no_cache,omitempty"`
}

// AnalyzeResponse is the analysis report.
type AnalyzeResponse struct {
	*symmetry.Report
	Cached bool `json:"cached"`
}

// ValidateRequest checks Generators, or the model's own candidates when
// Generators is empty.
type ValidateRequest struct {
	Model      string                      `json:"model,omitempty"`
	Definition *model.Definition           `json:"definition,omitempty"`
	Generators []model.GeneratorDefinition `json:"generators,omitempty"`
}

// ValidateResponse lists one result per generator.
type ValidateResponse struct {
	System  string                 `json:"system"`
	OK      bool                   `json:"ok"`
	Results []symmetry.CheckReport `json:"results"`
}

// ModelInfo describes a built-in model.
type ModelInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Equations   []string `json:"equations"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
		"cache":  s.cache != nil,
	})
}

func (s *Server) handleModels(c *gin.Context) {
	var out []ModelInfo
	for _, name := range model.BuiltinNames() {
		sys, err := model.Builtin(name)
		if err != nil {
			s.fail(c, err)
			return
		}
		info := ModelInfo{Name: name, Description: model.BuiltinDescription(name)}
		for _, st := range sys.States {
			info.Equations = append(info.Equations, fmt.Sprintf("%s' = %s", st.Name, st.RHS))
		}
		out = append(out, info)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleAnalyze(c *gin.Context) {
	var req AnalyzeRequest
	if !s.decode(c, &req) {
		return
	}
	sys, err := resolve(req.Model, req.Definition)
	if err != nil {
		s.fail(c, err)
		return
	}
	opts := s.cfg.Ansatz
	if len(req.Options) > 0 {
		if err := json.Unmarshal(req.Options, &opts); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "options: " + err.Error(), Code: "INVALID_REQUEST"})
			return
		}
	}
	logger := s.logger.With(slog.String("handler", "analyze"), slog.String("system", sys.Name))

	key := cache.Key(sys, opts)
	if s.cache != nil && !req.NoCache {
		r, err := s.cache.Get(key)
		switch {
		case err == nil:
			cacheLookups.WithLabelValues("hit").Inc()
			c.JSON(http.StatusOK, AnalyzeResponse{Report: r, Cached: true})
			return
		case errors.Is(err, cache.ErrMiss):
			cacheLookups.WithLabelValues("miss").Inc()
		default:
			cacheLookups.WithLabelValues("error").Inc()
			logger.Warn("cache lookup failed", slog.String("error", err.Error()))
		}
	}

	ctx, cancel := s.withTimeout(c.Request.Context())
	defer cancel()
	ws := symmetry.NewWorkspace(s.cfg.WorkspaceOptions(logger)...)
	a, err := symmetry.Analyze(ctx, ws, sys, opts)
	if err != nil {
		s.fail(c, err)
		return
	}
	analysisDuration.WithLabelValues(a.State.String()).Observe(a.Duration.Seconds())
	for _, v := range a.Validations {
		countValidation(v.OK)
	}
	report := a.Report()
	if s.cache != nil && !a.Interrupted() {
		if err := s.cache.Put(key, report); err != nil {
			logger.Warn("cache store failed", slog.String("error", err.Error()))
		}
	}
	logger.Info("analysis finished",
		slog.String("id", a.ID),
		slog.String("state", a.State.String()),
		slog.Int("basis", len(a.Basis)),
		slog.Duration("elapsed", a.Duration),
	)
	c.JSON(http.StatusOK, AnalyzeResponse{Report: report})
}

func (s *Server) handleValidate(c *gin.Context) {
	var req ValidateRequest
	if !s.decode(c, &req) {
		return
	}
	sys, err := resolve(req.Model, req.Definition)
	if err != nil {
		s.fail(c, err)
		return
	}
	candidates := sys.Candidates
	if len(req.Generators) > 0 {
		candidates = nil
		for _, g := range req.Generators {
			cand, err := sys.ParseCandidate(g.Name, g.Xi, g.Eta)
			if err != nil {
				s.fail(c, err)
				return
			}
			candidates = append(candidates, cand)
		}
	}
	if len(candidates) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "no generators to validate", Code: "INVALID_REQUEST"})
		return
	}

	ws := symmetry.NewWorkspace(s.cfg.WorkspaceOptions(s.logger)...)
	var results []*symmetry.ValidationResult
	resp := ValidateResponse{System: sys.Name, OK: true}
	for _, cand := range candidates {
		res, err := symmetry.Validator{}.Validate(ws, sys, symmetry.FromCandidate(sys, cand))
		if err != nil {
			s.fail(c, err)
			return
		}
		countValidation(res.OK)
		resp.OK = resp.OK && res.OK
		results = append(results, res)
	}
	resp.Results = symmetry.CheckReports(results)
	c.JSON(http.StatusOK, resp)
}

// ============================================================
// Helpers
// ============================================================

// decode reads a JSON body of at most model.MaxDefinitionSize bytes,
// rejecting unknown fields and trailing data.
func (s *Server) decode(c *gin.Context, v any) bool {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, model.MaxDefinitionSize)
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	err := dec.Decode(v)
	if err == nil && dec.More() {
		err = errors.New("invalid JSON: trailing data")
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_REQUEST"})
		return false
	}
	return true
}

func (s *Server) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, s.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}

func resolve(name string, def *model.Definition) (*model.System, error) {
	switch {
	case name != "" && def != nil:
		return nil, &model.MalformedSystemError{System: name, Reason: "request names a model and carries a definition"}
	case def != nil:
		return def.System()
	case name != "":
		return model.Builtin(name)
	}
	return nil, &model.MalformedSystemError{Reason: "request names no model"}
}

func (s *Server) fail(c *gin.Context, err error) {
	var (
		malformed  *model.MalformedSystemError
		derivation *symmetry.DerivationError
	)
	status, code := http.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, model.ErrUnknownModel):
		status, code = http.StatusNotFound, "UNKNOWN_MODEL"
	case errors.As(err, &malformed):
		status, code = http.StatusBadRequest, "MALFORMED_SYSTEM"
	case errors.Is(err, symmetry.ErrInvalidOptions):
		status, code = http.StatusBadRequest, "INVALID_OPTIONS"
	case errors.As(err, &derivation):
		status, code = http.StatusUnprocessableEntity, "DERIVATION_FAILED"
	case errors.Is(err, context.DeadlineExceeded):
		status, code = http.StatusGatewayTimeout, "TIMEOUT"
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", slog.String("path", c.Request.URL.Path), slog.String("error", err.Error()))
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}
