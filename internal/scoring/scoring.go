// Package scoring computes the multi-dimensional business-health score from
// an accumulated user profile.
//
// Score is deterministic and side-effect free: it is invoked after every
// assessment completion and may be invoked independently for reporting.
package scoring

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/momentohub/MomentoBot/internal/models"
)

// Overall moment breakpoints over the arithmetic mean of present dimensions.
const (
	overallSurvivalMax     = 3.4
	overallOrganizationMax = 6.4
)

// fieldScorer maps one profile field to 0, 1, or 2 points.
// present is false when the field is absent or not interpretable.
type fieldScorer interface {
	fieldName() string
	points(v any) (pts int, present bool)
}

// thresholdRule scores a numeric field against two fixed breakpoints:
// below low → 0, below high → 1, otherwise 2.
type thresholdRule struct {
	field string
	low   float64
	high  float64
}

func (r thresholdRule) fieldName() string { return r.field }

func (r thresholdRule) points(v any) (int, bool) {
	n, ok := numericValue(v)
	if !ok {
		return 0, false
	}
	switch {
	case n < r.low:
		return 0, true
	case n < r.high:
		return 1, true
	default:
		return 2, true
	}
}

// boolRule scores a yes/no field: no → 0, yes → 2.
type boolRule struct {
	field string
}

func (r boolRule) fieldName() string { return r.field }

func (r boolRule) points(v any) (int, bool) {
	b, ok := boolValue(v)
	if !ok {
		return 0, false
	}
	if b {
		return 2, true
	}
	return 0, true
}

// categoryRule scores a categorical field through a fixed level table.
type categoryRule struct {
	field  string
	levels map[string]int
}

func (r categoryRule) fieldName() string { return r.field }

func (r categoryRule) points(v any) (int, bool) {
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	pts, ok := r.levels[strings.ToLower(strings.TrimSpace(s))]
	return pts, ok
}

// dimensionSpec holds the rules and label breakpoints for one dimension.
// A dimension score at most surveyMax maps to Survival, at most
// organizationMax to Organization, anything above to Growth.
type dimensionSpec struct {
	dimension       models.ScoringDimension
	rules           []fieldScorer
	survivalMax     int
	organizationMax int
}

var dimensionSpecs = []dimensionSpec{
	{
		dimension: models.DimensionFinancial,
		rules: []fieldScorer{
			thresholdRule{field: "monthly_revenue", low: 5000, high: 20000},
			thresholdRule{field: "profit_margin", low: 10, high: 25},
			thresholdRule{field: "cash_reserve_months", low: 1, high: 3},
			boolRule{field: "separates_finances"},
		},
		survivalMax:     3,
		organizationMax: 6,
	},
	{
		dimension: models.DimensionOperational,
		rules: []fieldScorer{
			categoryRule{field: "documented_processes", levels: map[string]int{"none": 0, "partial": 1, "full": 2}},
			thresholdRule{field: "on_time_delivery", low: 70, high: 90},
			thresholdRule{field: "capacity_utilization", low: 50, high: 80},
		},
		survivalMax:     2,
		organizationMax: 5,
	},
	{
		dimension: models.DimensionTooling,
		rules: []fieldScorer{
			categoryRule{field: "management_system", levels: map[string]int{"none": 0, "spreadsheet": 1, "software": 2}},
			boolRule{field: "digital_payments"},
			boolRule{field: "online_sales_channel"},
		},
		survivalMax:     2,
		organizationMax: 5,
	},
	{
		dimension: models.DimensionMarket,
		rules: []fieldScorer{
			boolRule{field: "knows_target_customer"},
			thresholdRule{field: "repeat_customer_rate", low: 20, high: 50},
			categoryRule{field: "customer_feedback", levels: map[string]int{"never": 0, "sometimes": 1, "regular": 2}},
			thresholdRule{field: "marketing_channels", low: 1, high: 3},
		},
		survivalMax:     3,
		organizationMax: 6,
	},
	{
		dimension: models.DimensionStrategy,
		rules: []fieldScorer{
			boolRule{field: "has_business_plan"},
			categoryRule{field: "goals_reviewed", levels: map[string]int{"never": 0, "yearly": 1, "quarterly": 2}},
			boolRule{field: "team_roles_defined"},
		},
		survivalMax:     2,
		organizationMax: 5,
	},
	{
		dimension: models.DimensionContext,
		rules: []fieldScorer{
			categoryRule{field: "market_trend", levels: map[string]int{"declining": 0, "stable": 1, "growing": 2}},
			categoryRule{field: "competition_level", levels: map[string]int{"high": 0, "medium": 1, "low": 2}},
			thresholdRule{field: "years_in_business", low: 2, high: 5},
		},
		survivalMax:     2,
		organizationMax: 4,
	},
}

// Score computes per-dimension scores and the overall moment for a profile.
// Dimensions with no contributing fields are excluded from both the snapshot
// and the average. A profile with zero populated dimensions yields the
// Survival fallback with an average of zero.
func Score(profile map[string]map[string]any) models.ScoringSnapshot {
	fields := flatten(profile)

	snapshot := models.ScoringSnapshot{
		Dimensions: make(map[models.ScoringDimension]models.DimensionScore),
		ComputedAt: time.Now(),
	}

	var sum, count int
	for _, spec := range dimensionSpecs {
		total, present := 0, false
		for _, rule := range spec.rules {
			v, ok := fields[rule.fieldName()]
			if !ok {
				continue
			}
			pts, usable := rule.points(v)
			if !usable {
				continue
			}
			total += pts
			present = true
		}
		if !present {
			continue
		}
		snapshot.Dimensions[spec.dimension] = models.DimensionScore{
			Score:  total,
			Moment: dimensionMoment(total, spec),
		}
		sum += total
		count++
	}

	if count == 0 {
		snapshot.Moment = models.MomentSurvival
		return snapshot
	}

	snapshot.Average = float64(sum) / float64(count)
	snapshot.Moment = overallMoment(snapshot.Average)
	return snapshot
}

func dimensionMoment(score int, spec dimensionSpec) models.Moment {
	switch {
	case score <= spec.survivalMax:
		return models.MomentSurvival
	case score <= spec.organizationMax:
		return models.MomentOrganization
	default:
		return models.MomentGrowth
	}
}

func overallMoment(avg float64) models.Moment {
	switch {
	case avg <= overallSurvivalMax:
		return models.MomentSurvival
	case avg <= overallOrganizationMax:
		return models.MomentOrganization
	default:
		return models.MomentGrowth
	}
}

// flatten merges all profile sections into one field view. Section names are
// iterated in sorted order so that duplicate keys resolve deterministically
// (last section in lexical order wins).
func flatten(profile map[string]map[string]any) map[string]any {
	out := make(map[string]any)
	sections := make([]string, 0, len(profile))
	for name := range profile {
		sections = append(sections, name)
	}
	sort.Strings(sections)
	for _, name := range sections {
		for k, v := range profile[name] {
			out[k] = v
		}
	}
	return out
}

// numericValue coerces JSON numbers and numeric strings to float64.
func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(n, ",", "."))
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// boolValue coerces booleans and common yes/no strings (including the
// Portuguese "sim"/"não" used on the WhatsApp channel).
func boolValue(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "sim", "yes", "true", "1":
			return true, true
		case "não", "nao", "no", "false", "0":
			return false, true
		default:
			return false, false
		}
	default:
		return false, false
	}
}
