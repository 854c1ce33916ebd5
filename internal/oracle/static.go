package oracle

import "context"

// Static is a deterministic oracle used in tests and when no oracle endpoint
// is configured. It mirrors the documented guidance.
type Static struct {
	// Err, when set, is returned by every call. Lets tests exercise the
	// callers' fail-open paths.
	Err error

	// DosageVerdict, when set, overrides the default pass verdict.
	DosageVerdict *CheckVerdict
}

func (s *Static) ReviewDosage(ctx context.Context, dc DosageContext) (CheckVerdict, error) {
	if s.Err != nil {
		return CheckVerdict{}, s.Err
	}
	if s.DosageVerdict != nil {
		return *s.DosageVerdict, nil
	}
	return CheckVerdict{Passed: true, Severity: "ok", Reason: "within dosage guidance"}, nil
}

func (s *Static) JudgeRefill(ctx context.Context, rc RefillContext) (AlertVerdict, error) {
	if s.Err != nil {
		return AlertVerdict{}, s.Err
	}
	if rc.DaysSinceLastOrder >= 0 && rc.DaysSinceLastOrder < 3 {
		return AlertVerdict{Alert: false, Message: "recent order, no alert needed"}, nil
	}
	threshold := 7
	if rc.PrescriptionRequired {
		threshold = 10
	}
	if rc.DaysUntilDepletion <= threshold {
		urgency := "medium"
		if rc.DaysUntilDepletion <= 2 {
			urgency = "high"
		}
		return AlertVerdict{Alert: true, Urgency: urgency, Message: "supply is running low, consider a refill"}, nil
	}
	return AlertVerdict{Alert: false}, nil
}
