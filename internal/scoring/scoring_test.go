package scoring

import (
	"testing"

	"github.com/momentohub/MomentoBot/internal/models"
)

func TestScoreEmptyProfile(t *testing.T) {
	snap := Score(nil)
	if len(snap.Dimensions) != 0 {
		t.Errorf("expected no dimensions, got %d", len(snap.Dimensions))
	}
	if snap.Average != 0 {
		t.Errorf("expected zero average, got %f", snap.Average)
	}
	if snap.Moment != models.MomentSurvival {
		t.Errorf("expected Survival fallback, got %s", snap.Moment)
	}
}

func TestScoreAbsentDimensionsExcluded(t *testing.T) {
	profile := map[string]map[string]any{
		"finances": {
			"monthly_revenue": 25000.0,
			"profit_margin":   30.0,
		},
	}
	snap := Score(profile)
	if len(snap.Dimensions) != 1 {
		t.Fatalf("expected 1 dimension, got %d", len(snap.Dimensions))
	}
	fin, ok := snap.Dimensions[models.DimensionFinancial]
	if !ok {
		t.Fatal("expected financial dimension present")
	}
	// 2 (revenue >= 20000) + 2 (margin >= 25) = 4
	if fin.Score != 4 {
		t.Errorf("expected financial score 4, got %d", fin.Score)
	}
	if fin.Moment != models.MomentOrganization {
		t.Errorf("expected financial moment Organization, got %s", fin.Moment)
	}
	// Average over present dimensions only: 4/1.
	if snap.Average != 4.0 {
		t.Errorf("expected average 4.0, got %f", snap.Average)
	}
	if snap.Moment != models.MomentOrganization {
		t.Errorf("expected overall Organization, got %s", snap.Moment)
	}
}

func TestScoreStringCoercion(t *testing.T) {
	// Assessment answers persist as strings; scoring must coerce them.
	profile := map[string]map[string]any{
		"finances": {
			"monthly_revenue":    "5000",
			"profit_margin":      "8,5",
			"separates_finances": "sim",
		},
	}
	snap := Score(profile)
	fin, ok := snap.Dimensions[models.DimensionFinancial]
	if !ok {
		t.Fatal("expected financial dimension present")
	}
	// 1 (revenue exactly at 5000) + 0 (margin 8.5 < 10) + 2 (sim) = 3
	if fin.Score != 3 {
		t.Errorf("expected financial score 3, got %d", fin.Score)
	}
	if fin.Moment != models.MomentSurvival {
		t.Errorf("expected Survival, got %s", fin.Moment)
	}
}

func TestScoreUninterpretableFieldsIgnored(t *testing.T) {
	profile := map[string]map[string]any{
		"finances": {
			"monthly_revenue":    "muito pouco",
			"separates_finances": "talvez",
		},
	}
	snap := Score(profile)
	if len(snap.Dimensions) != 0 {
		t.Errorf("expected no dimensions from uninterpretable fields, got %d", len(snap.Dimensions))
	}
	if snap.Moment != models.MomentSurvival {
		t.Errorf("expected Survival fallback, got %s", snap.Moment)
	}
}

func TestScoreOverallBreakpoints(t *testing.T) {
	tests := []struct {
		name    string
		profile map[string]map[string]any
		want    models.Moment
	}{
		{
			name: "low average is Survival",
			profile: map[string]map[string]any{
				"finances": {"monthly_revenue": 1000.0},
			},
			want: models.MomentSurvival,
		},
		{
			name: "mid average is Organization",
			profile: map[string]map[string]any{
				"finances": {
					"monthly_revenue":     25000.0,
					"profit_margin":       30.0,
					"cash_reserve_months": 2.0,
				},
			},
			want: models.MomentOrganization,
		},
		{
			name: "high average is Growth",
			profile: map[string]map[string]any{
				"finances": {
					"monthly_revenue":     25000.0,
					"profit_margin":       30.0,
					"cash_reserve_months": 6.0,
					"separates_finances":  true,
				},
				"operations": {
					"documented_processes": "full",
					"on_time_delivery":     95.0,
					"capacity_utilization": 85.0,
				},
			},
			want: models.MomentGrowth,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := Score(tt.profile)
			if snap.Moment != tt.want {
				t.Errorf("expected %s, got %s (average %f)", tt.want, snap.Moment, snap.Average)
			}
		})
	}
}

func TestScoreAllSixDimensions(t *testing.T) {
	profile := map[string]map[string]any{
		"finances":   {"monthly_revenue": 10000.0},
		"operations": {"documented_processes": "partial"},
		"tooling":    {"management_system": "spreadsheet"},
		"market":     {"knows_target_customer": true},
		"strategy":   {"has_business_plan": false},
		"business":   {"years_in_business": 3.0},
	}
	snap := Score(profile)
	if len(snap.Dimensions) != 6 {
		t.Fatalf("expected 6 dimensions, got %d", len(snap.Dimensions))
	}
	// Strategy has an interpretable "no" answer: present with score 0.
	strat := snap.Dimensions[models.DimensionStrategy]
	if strat.Score != 0 || strat.Moment != models.MomentSurvival {
		t.Errorf("expected strategy 0/Survival, got %d/%s", strat.Score, strat.Moment)
	}
}

func TestScoreDeterministic(t *testing.T) {
	profile := map[string]map[string]any{
		"finances": {"monthly_revenue": 12000.0, "profit_margin": 15.0},
		"market":   {"repeat_customer_rate": 60.0},
	}
	first := Score(profile)
	for i := 0; i < 10; i++ {
		again := Score(profile)
		if again.Average != first.Average || again.Moment != first.Moment {
			t.Fatalf("score drifted on run %d: %f/%s vs %f/%s",
				i, again.Average, again.Moment, first.Average, first.Moment)
		}
	}
}
