package core

import (
	"context"
	"fmt"

	"cradlecore/pkg/domain"
)

// Plausibility bounds for warn-level screening. Values outside these ranges
// are stored anyway; validation proper is a controller concern.
const (
	minPlausibleTemperature = 30.0
	maxPlausibleTemperature = 45.0
)

// ImplausibleReadingRule flags semantically odd numeric input on new records:
// negative feeding volumes, out-of-range temperatures, negative measurements.
// Violations are warn severity and never block the commit.
type ImplausibleReadingRule struct{}

// Name identifies the rule in violations.
func (ImplausibleReadingRule) Name() string { return "implausible-reading" }

// Evaluate screens record creations for implausible numbers.
func (r ImplausibleReadingRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	var result domain.Result
	warn := func(id, msg string) {
		result.Violations = append(result.Violations, domain.Violation{
			Rule:     r.Name(),
			Severity: domain.SeverityWarn,
			Message:  msg,
			Entity:   domain.EntityRecord,
			EntityID: id,
		})
	}
	for _, change := range changes {
		if change.Entity != domain.EntityRecord || change.Action != domain.ActionCreate {
			continue
		}
		switch rec := change.After.(type) {
		case domain.FeedingRecord:
			if rec.Volume < 0 {
				warn(rec.ID, fmt.Sprintf("feeding volume %.1fml is negative", rec.Volume))
			}
		case domain.TemperatureRecord:
			if rec.Reading != 0 && (rec.Reading < minPlausibleTemperature || rec.Reading > maxPlausibleTemperature) {
				warn(rec.ID, fmt.Sprintf("temperature reading %.1f is outside the plausible range", rec.Reading))
			}
		case domain.GrowthMeasurement:
			if rec.Weight < 0 || rec.Height < 0 {
				warn(rec.ID, "growth measurement has a negative value")
			}
		}
	}
	return result, nil
}
