package scheduler

// Health heuristics. Pending work below twice the concurrency limit is
// considered healthy; beyond three times the limit the report suggests
// scaling; failures above a tenth of completions suggest investigation.
const (
	healthyBacklogFactor  = 2
	scaleUpBacklogFactor  = 3
	failureRatioThreshold = 0.10
)

// Stats is a consistent snapshot of the scheduler's counters. At every
// snapshot Total == Completed + Failed + Running + Pending.
type Stats struct {
	Total            int64 `json:"total"`
	Completed        int64 `json:"completed"`
	Failed           int64 `json:"failed"`
	Running          int   `json:"running"`
	Pending          int   `json:"pending"`
	ConcurrencyLimit int   `json:"concurrency_limit"`
}

// HealthReport combines a stats snapshot with advisory findings about
// backlog and failure trends.
type HealthReport struct {
	Healthy         bool     `json:"healthy"`
	Stats           Stats    `json:"stats"`
	Recommendations []string `json:"recommendations,omitempty"`
}

func buildHealthReport(st Stats) HealthReport {
	var recs []string

	if st.Failed > 0 && float64(st.Failed) > float64(st.Completed)*failureRatioThreshold {
		recs = append(recs, "failure ratio exceeds 10% of completions; inspect recent task errors")
	}
	if st.Pending > st.ConcurrencyLimit*scaleUpBacklogFactor {
		recs = append(recs, "pending backlog exceeds 3x the concurrency limit; consider raising the limit or throttling submissions")
	}
	if st.Completed > 0 && st.Failed == 0 {
		recs = append(recs, "all completed tasks succeeded")
	}

	return HealthReport{
		Healthy:         st.Pending < st.ConcurrencyLimit*healthyBacklogFactor,
		Stats:           st,
		Recommendations: recs,
	}
}
