package compliance

import (
	"sort"

	"github.com/pesio-ai/be-relocation-cases/internal/model"
)

// DefaultNearLimitBand is the share of a cap from which spend counts as near
// the limit.
const DefaultNearLimitBand = 0.90

// CoverageStatus classifies spend against a cap. A cap of zero or less means
// "no cap" and is always on track.
func CoverageStatus(used, limit int64, band float64) model.CoverageStatus {
	if limit <= 0 {
		return model.CoverageOnTrack
	}
	if used > limit {
		return model.CoverageOverLimit
	}
	if band <= 0 || band >= 1 {
		band = DefaultNearLimitBand
	}
	if float64(used) >= float64(limit)*band {
		return model.CoverageNearLimit
	}
	return model.CoverageOnTrack
}

// BuildCoverage computes one coverage item per capped category. Spend on
// categories without a configured cap is reported with cap 0.
func BuildCoverage(policy *Policy, spend map[string]int64) []model.Coverage {
	categories := make([]string, 0, len(policy.Caps)+len(spend))
	for c := range policy.Caps {
		categories = append(categories, c)
	}
	for c := range spend {
		if _, ok := policy.Caps[c]; !ok {
			categories = append(categories, c)
		}
	}
	sort.Strings(categories)

	out := make([]model.Coverage, 0, len(categories))
	for _, category := range categories {
		capDef := policy.Caps[category]
		used := spend[category]
		remaining := capDef.Amount - used
		if remaining < 0 {
			remaining = 0
		}
		currency := capDef.Currency
		if currency == "" {
			currency = policy.Currency
		}
		title := capDef.Title
		if title == "" {
			title = category
		}
		out = append(out, model.Coverage{
			Category:  category,
			Title:     title,
			Used:      used,
			Cap:       capDef.Amount,
			Remaining: remaining,
			Currency:  currency,
			Status:    CoverageStatus(used, capDef.Amount, policy.NearLimitBand),
		})
	}
	return out
}
