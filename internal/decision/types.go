package decision

// CriterionResult records pass/fail for one evaluated criterion.
type CriterionResult struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// Verdict is the evaluated recommendation with its supporting checklist.
// Recommendation is one of the domain.Recommendation* constants.
type Verdict struct {
	Recommendation string
	Criteria       []CriterionResult
}

// PassedCount returns how many criteria passed.
func (v *Verdict) PassedCount() int {
	n := 0
	for _, c := range v.Criteria {
		if c.Pass {
			n++
		}
	}
	return n
}
