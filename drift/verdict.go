package drift

// Status labels for drift verdicts.
const (
	StatusNoDrift            = "No Drift Detected"
	StatusPendingRemediation = "Pending Remediation"
)

// Verdict is the drift decision for one invocation. It is a pure function
// of whether the plan reported changes.
type Verdict struct {
	HasDrift bool   `json:"has_drift"`
	Status   string `json:"status"`
}

// VerdictFor maps plan has_changes to a verdict.
func VerdictFor(hasChanges bool) Verdict {
	if hasChanges {
		return Verdict{HasDrift: true, Status: StatusPendingRemediation}
	}
	return Verdict{HasDrift: false, Status: StatusNoDrift}
}
