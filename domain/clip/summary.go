package clip

// Summary aggregates the outcomes of one batch run
type Summary struct {
	RunID     string
	Outcomes  []Outcome
	Completed int
	Skipped   int
	Failed    int
}

// Add records an outcome, preserving manifest order
func (s *Summary) Add(o Outcome) {
	s.Outcomes = append(s.Outcomes, o)
	switch o.Status {
	case StatusCompleted:
		s.Completed++
	case StatusSkipped:
		s.Skipped++
	case StatusFailed:
		s.Failed++
	}
}

// Total returns the number of rows evaluated
func (s *Summary) Total() int {
	return len(s.Outcomes)
}
