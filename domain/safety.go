package domain

// Severity of a single safety check result.
const (
	SeverityOK       = "ok"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Final decisions produced by the safety evaluator.
const (
	DecisionApproved       = "APPROVED"
	DecisionRequiresAction = "REQUIRES_ACTION"
	DecisionRejected       = "REJECTED"
)

// Required actions the caller must resolve before an order may proceed.
const (
	ActionUploadPrescription = "upload_prescription"
	ActionConfirmDosage      = "confirm_dosage"
	ActionConfirmQuantity    = "confirm_quantity"
)

// SafetyCheckResult is the outcome of one check. Evidence carries whatever
// counts or context the check wants to surface alongside the reason.
type SafetyCheckResult struct {
	Check    string         `json:"check"`
	Passed   bool           `json:"passed"`
	Severity string         `json:"severity"`
	Reason   string         `json:"reason"`
	Evidence map[string]any `json:"evidence,omitempty"`
}

// SafetyDecision combines every check result into one verdict. Checks always
// contains an entry per check, even when an earlier one failed.
type SafetyDecision struct {
	Decision        string              `json:"decision"`
	CanProceed      bool                `json:"can_proceed"`
	Checks          []SafetyCheckResult `json:"checks"`
	RequiredActions []string            `json:"required_actions"`
}

// Reasons collects the reason strings of failing checks.
func (d SafetyDecision) Reasons() []string {
	var reasons []string
	for _, c := range d.Checks {
		if !c.Passed {
			reasons = append(reasons, c.Reason)
		}
	}
	return reasons
}
