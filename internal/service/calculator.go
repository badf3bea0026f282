package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opioid-rotation-mcp-server/internal/cache"
	"github.com/opioid-rotation-mcp-server/internal/domain"
	"github.com/opioid-rotation-mcp-server/pkg/opioid"
)

// CalculatorService validates calculation requests, applies configured
// defaults and memoizes results of the pure calculation core.
type CalculatorService struct {
	logger   *logrus.Logger
	cache    cache.Cache
	defaults domain.CalculatorConfig
}

var _ domain.Calculator = (*CalculatorService)(nil)

// NewCalculatorService creates a calculator. A nil cache disables memoization.
func NewCalculatorService(logger *logrus.Logger, c cache.Cache, defaults domain.CalculatorConfig) *CalculatorService {
	if defaults.DefaultAPAPPerTabletMg <= 0 {
		defaults.DefaultAPAPPerTabletMg = opioid.DefaultAPAPPerTabletMg
	}
	defaults.DefaultCrossTolerancePct = opioid.ClampCrossTolerance(defaults.DefaultCrossTolerancePct)
	return &CalculatorService{logger: logger, cache: c, defaults: defaults}
}

// Defaults returns the effective calculator defaults.
func (s *CalculatorService) Defaults() domain.CalculatorConfig {
	return s.defaults
}

// HomeRegimen totals OME and APAP across the home regimen.
func (s *CalculatorService) HomeRegimen(ctx context.Context, req *domain.HomeRegimenRequest) (*opioid.RegimenSummary, error) {
	if req == nil {
		return nil, domain.NewValidationError("request", "request is required", nil)
	}
	meds, err := normalizeMedications(req.Medications)
	if err != nil {
		return nil, fmt.Errorf("invalid home regimen: %w", err)
	}
	if err := checkNumber("default_apap_per_tablet_mg", req.DefaultAPAPPerTabletMg); err != nil {
		return nil, fmt.Errorf("invalid home regimen: %w", err)
	}
	norm := domain.HomeRegimenRequest{
		Medications:            meds,
		DefaultAPAPPerTabletMg: s.apapDefault(req.DefaultAPAPPerTabletMg),
	}

	summary := memoize(ctx, s, "home_regimen", norm, func() opioid.RegimenSummary {
		return opioid.Aggregate(norm.Medications, opioid.NormalizeOptions{DefaultAPAPPerTabletMg: norm.DefaultAPAPPerTabletMg})
	})

	s.logger.WithFields(logrus.Fields{
		"operation":   "home_regimen",
		"entries":     len(meds),
		"total_ome":   summary.TotalOME,
		"apap_level":  summary.APAPLevel,
		"incomplete":  len(summary.Pending),
		"unsupported": len(summary.Notes),
	}).Debug("Home regimen calculated")
	return &summary, nil
}

// Rotate converts the home OME into the target drug and route.
func (s *CalculatorService) Rotate(ctx context.Context, req *domain.RotateRequest) (*domain.RotateResponse, error) {
	if req == nil {
		return nil, domain.NewValidationError("request", "request is required", nil)
	}
	norm, err := s.normalizeRotate(*req)
	if err != nil {
		return nil, fmt.Errorf("invalid rotation request: %w", err)
	}

	resp := memoize(ctx, s, "rotate", norm, func() domain.RotateResponse {
		ome, summary := s.resolveOME(norm.OMESource)
		return domain.RotateResponse{
			OME:     ome,
			Regimen: summary,
			Conversion: opioid.RotateToTarget(ome, norm.Target, norm.Route, opioid.RotationOptions{
				CrossTolerancePct: *norm.CrossTolerancePct,
				Frail:             norm.Frail,
			}),
		}
	})

	s.logOutcome("rotate", resp.Conversion.Outcome, logrus.Fields{
		"ome":    resp.OME,
		"target": norm.Target,
		"route":  norm.Route,
	})
	return &resp, nil
}

// PRN sizes one as-needed dose for a severity tier.
func (s *CalculatorService) PRN(ctx context.Context, req *domain.PRNRequest) (*domain.PRNResponse, error) {
	if req == nil {
		return nil, domain.NewValidationError("request", "request is required", nil)
	}
	norm, err := s.normalizePRN(*req)
	if err != nil {
		return nil, fmt.Errorf("invalid PRN request: %w", err)
	}

	resp := memoize(ctx, s, "prn", norm, func() domain.PRNResponse {
		ome, summary := s.resolveOME(norm.OMESource)
		return domain.PRNResponse{
			OME:     ome,
			Regimen: summary,
			Suggestion: opioid.SuggestPRN(ome, norm.Drug, norm.Route, norm.FreqHours, norm.Severity, opioid.PRNOptions{
				OpioidNaive:              norm.OpioidNaive,
				PreferredAPAPPerTabletMg: norm.PreferredAPAPPerTabletMg,
			}),
		}
	})

	s.logOutcome("prn", resp.Suggestion.Outcome, logrus.Fields{
		"ome":      resp.OME,
		"severity": norm.Severity,
		"drug":     norm.Drug,
	})
	return &resp, nil
}

// PRNTable sizes one PRN dose per selected severity tier.
func (s *CalculatorService) PRNTable(ctx context.Context, req *domain.PRNTableRequest) (*domain.PRNTableResponse, error) {
	if req == nil {
		return nil, domain.NewValidationError("request", "request is required", nil)
	}
	norm, err := s.normalizePRNTable(*req)
	if err != nil {
		return nil, fmt.Errorf("invalid PRN table request: %w", err)
	}

	resp := memoize(ctx, s, "prn_table", norm, func() domain.PRNTableResponse {
		ome, summary := s.resolveOME(norm.OMESource)
		return domain.PRNTableResponse{
			OME:     ome,
			Regimen: summary,
			Suggestions: opioid.SuggestPRNTable(ome, norm.Selections, opioid.PRNOptions{
				OpioidNaive:              norm.OpioidNaive,
				PreferredAPAPPerTabletMg: norm.PreferredAPAPPerTabletMg,
			}),
		}
	})

	s.logger.WithFields(logrus.Fields{
		"operation": "prn_table",
		"ome":       resp.OME,
		"tiers":     len(resp.Suggestions),
	}).Debug("PRN table calculated")
	return &resp, nil
}

// QuickConvert converts one explicit source dose into a target.
func (s *CalculatorService) QuickConvert(ctx context.Context, req *domain.QuickConvertRequest) (*opioid.QuickResult, error) {
	if req == nil {
		return nil, domain.NewValidationError("request", "request is required", nil)
	}
	norm, err := s.normalizeQuick(*req)
	if err != nil {
		return nil, fmt.Errorf("invalid quick conversion: %w", err)
	}

	res := memoize(ctx, s, "quick_convert", norm, func() opioid.QuickResult {
		return opioid.QuickConvert(norm.Source, norm.Target, opioid.QuickOptions{
			RotationOptions: opioid.RotationOptions{
				CrossTolerancePct: *norm.CrossTolerancePct,
				Frail:             norm.Frail,
			},
			IncludeFrequency: norm.IncludeFrequency,
		})
	})

	s.logOutcome("quick_convert", res.Outcome, logrus.Fields{
		"source": norm.Source.Drug,
		"target": norm.Target.Drug,
	})
	return &res, nil
}

// ScheduledRegimen builds a new scheduled regimen from the home OME.
func (s *CalculatorService) ScheduledRegimen(ctx context.Context, req *domain.ScheduledRequest) (*domain.ScheduledResponse, error) {
	if req == nil {
		return nil, domain.NewValidationError("request", "request is required", nil)
	}
	norm, err := s.normalizeScheduled(*req)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduled regimen request: %w", err)
	}

	resp := memoize(ctx, s, "scheduled_regimen", norm, func() domain.ScheduledResponse {
		ome, summary := s.resolveOME(norm.OMESource)
		return domain.ScheduledResponse{
			OME:     ome,
			Regimen: summary,
			Scheduled: opioid.BuildScheduledRegimen(ome, norm.Drug, norm.Route, norm.FreqHours, opioid.ScheduledOptions{
				RotationOptions: opioid.RotationOptions{
					CrossTolerancePct: *norm.CrossTolerancePct,
					Frail:             norm.Frail,
				},
				IntensityPct: norm.IntensityPct,
				OpioidNaive:  norm.OpioidNaive,
			}),
		}
	})

	s.logOutcome("scheduled_regimen", resp.Scheduled.Outcome, logrus.Fields{
		"ome":  resp.OME,
		"drug": norm.Drug,
	})
	return &resp, nil
}

// PainPlan renders the pain management plan from one home regimen.
func (s *CalculatorService) PainPlan(ctx context.Context, req *domain.PlanRequest) (*domain.PlanResponse, error) {
	if req == nil {
		return nil, domain.NewValidationError("request", "request is required", nil)
	}
	norm, err := s.normalizePlan(*req)
	if err != nil {
		return nil, fmt.Errorf("invalid pain plan request: %w", err)
	}

	resp := memoize(ctx, s, "pain_plan", norm, func() domain.PlanResponse {
		return s.buildPlan(norm)
	})

	s.logger.WithFields(logrus.Fields{
		"operation": "pain_plan",
		"ome":       resp.OME,
		"prn_tiers": len(resp.PRN),
		"scheduled": resp.Scheduled != nil,
	}).Debug("Pain plan rendered")
	return &resp, nil
}

func (s *CalculatorService) buildPlan(req domain.PlanRequest) domain.PlanResponse {
	ome, summary := s.resolveOME(req.OMESource)
	resp := domain.PlanResponse{OME: ome, Regimen: summary}
	rotation := opioid.RotationOptions{CrossTolerancePct: *req.CrossTolerancePct, Frail: req.Frail}

	if sel := req.Scheduled; sel != nil {
		reg := opioid.BuildScheduledRegimen(ome, sel.Drug, sel.Route, sel.FreqHours, opioid.ScheduledOptions{
			RotationOptions: rotation,
			IntensityPct:    sel.IntensityPct,
			OpioidNaive:     req.OpioidNaive,
		})
		resp.Scheduled = &reg
	}
	if len(req.PRN) > 0 {
		resp.PRN = opioid.SuggestPRNTable(ome, req.PRN, opioid.PRNOptions{
			OpioidNaive:              req.OpioidNaive,
			PreferredAPAPPerTabletMg: req.PreferredAPAPPerTabletMg,
		})
	}

	resp.Text = opioid.BuildPainPlan(opioid.PlanInput{
		Scheduled:       resp.Scheduled,
		HomeMedications: req.Medications,
		ContinueER:      req.ContinueER,
		PRN:             resp.PRN,
		Adjuncts:        req.Adjuncts,
	})
	return resp
}

// ReferenceTables returns a snapshot of every lookup table.
func (s *CalculatorService) ReferenceTables(_ context.Context) opioid.Reference {
	return opioid.ReferenceTables()
}

// CacheStats reports memoization counters, or zero stats without a cache.
func (s *CalculatorService) CacheStats() cache.Stats {
	if s.cache == nil {
		return cache.Stats{}
	}
	return s.cache.Stats()
}

// resolveOME returns the explicit OME or aggregates the home regimen.
func (s *CalculatorService) resolveOME(src domain.OMESource) (float64, *opioid.RegimenSummary) {
	if src.OME != nil {
		return *src.OME, nil
	}
	summary := opioid.Aggregate(src.Medications, opioid.NormalizeOptions{DefaultAPAPPerTabletMg: src.DefaultAPAPPerTabletMg})
	return summary.TotalOME, &summary
}

func (s *CalculatorService) apapDefault(requested float64) float64 {
	if requested > 0 {
		return requested
	}
	return s.defaults.DefaultAPAPPerTabletMg
}

// crossTolerance applies the configured default and clamps to [0, 95].
func (s *CalculatorService) crossTolerance(pct *float64) *float64 {
	v := s.defaults.DefaultCrossTolerancePct
	if pct != nil {
		v = *pct
	}
	v = opioid.ClampCrossTolerance(v)
	return &v
}

func (s *CalculatorService) logOutcome(op string, out opioid.Outcome, fields logrus.Fields) {
	fields["operation"] = op
	fields["status"] = out.Status
	entry := s.logger.WithFields(fields)
	if out.OK() {
		entry.Debug("Calculation completed")
		return
	}
	entry.WithField("reason", out.Reason).Info("Calculation not computed")
}

// memoize returns the cached result for (op, req) or computes and stores it.
// Cache failures are logged and ignored.
func memoize[T any](ctx context.Context, s *CalculatorService, op string, req interface{}, compute func() T) T {
	if s.cache == nil {
		return compute()
	}

	key, err := cache.Key(op, req)
	if err != nil {
		s.logger.WithError(err).WithField("operation", op).Warn("Failed to build cache key")
		return compute()
	}
	log := s.logger.WithFields(logrus.Fields{"operation": op, "cache_key": key})

	if data, ok, err := s.cache.Get(ctx, key); err != nil {
		log.WithError(err).Warn("Cache read failed")
	} else if ok {
		var cached T
		if err := json.Unmarshal(data, &cached); err == nil {
			log.Debug("Cache hit")
			return cached
		}
		log.Warn("Discarding undecodable cache entry")
	}

	result := compute()
	data, err := json.Marshal(result)
	if err != nil {
		log.WithError(err).Warn("Failed to encode result for cache")
		return result
	}
	if err := s.cache.Set(ctx, key, data); err != nil {
		log.WithError(err).Warn("Cache write failed")
	}
	return result
}
