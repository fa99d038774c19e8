package models

import (
	"strconv"
	"time"
)

// ProblemKey builds the canonical identity for a problem: contest id
// concatenated with the problem index, e.g. contest 1500 problem "A"
// becomes "1500A". Every store keyed by problem uses this form.
func ProblemKey(contestID int64, index string) string {
	return strconv.FormatInt(contestID, 10) + index
}

// Problem is one entry of the Codeforces problemset catalog.
// Rating is nil for problems the judge has not rated yet.
type Problem struct {
	ContestID int64  `json:"contestId"`
	Index     string `json:"index"`
	Name      string `json:"name"`
	Rating    *int   `json:"rating,omitempty"`
}

func (p Problem) Key() string {
	return ProblemKey(p.ContestID, p.Index)
}

// UserData is the per-handle cache entry. The three timestamps are
// independent freshness markers: rating and the full submission scan
// refresh daily, the quick scan of recent submissions every few minutes.
// A nil timestamp means that tier has never been fetched.
type UserData struct {
	Handle          string          `json:"handle"`
	Rating          int             `json:"rating"`
	RatingCheckedAt *time.Time      `json:"ratingCheckedAt,omitempty"`
	FullCheckedAt   *time.Time      `json:"fullCheckedAt,omitempty"`
	QuickCheckedAt  *time.Time      `json:"quickCheckedAt,omitempty"`
	Solved          map[string]bool `json:"-"`
}

// SolvedList returns the solved set as a slice for serialization.
func (u *UserData) SolvedList() []string {
	out := make([]string, 0, len(u.Solved))
	for k := range u.Solved {
		out = append(out, k)
	}
	return out
}

// History entry lifecycle statuses. A recommended entry flips to solved
// exactly once and never back.
const (
	StatusRecommended = "recommended"
	StatusSolved      = "solved"
)

// HistoryEntry records one recommended problem for a handle.
// Day has calendar granularity ("2006-01-02"); Order groups entries
// recommended in the same batch on that day.
type HistoryEntry struct {
	ContestID int64      `json:"contestId"`
	Index     string     `json:"index"`
	Name      string     `json:"name"`
	Rating    *int       `json:"rating,omitempty"`
	Status    string     `json:"status"`
	Day       string     `json:"recommendedOn"`
	Order     int        `json:"recommendationOrder"`
	SolveTime *int64     `json:"solveTime,omitempty"`
	SolvedAt  *time.Time `json:"solvedOn,omitempty"`
}

func (e HistoryEntry) Key() string {
	return ProblemKey(e.ContestID, e.Index)
}

// HistoryFilter narrows history listings.
type HistoryFilter struct {
	Handle string
	Status string
	Day    string
}

// YearRange bounds recommendation candidates by contest year.
// Zero on either side leaves that side unbounded.
type YearRange struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Contains reports whether a known contest year passes the range.
func (r YearRange) Contains(year int) bool {
	if r.From > 0 && year < r.From {
		return false
	}
	if r.To > 0 && year > r.To {
		return false
	}
	return true
}

// SolvedRecord is the process-wide note kept when a timer stops: how long
// the tracked attempt took and when it was detected solved.
type SolvedRecord struct {
	SolveTime int64     `json:"solveTime"`
	SolvedOn  time.Time `json:"solvedOn"`
}

// TimerSnapshot is what the timer coordinator publishes: active timer
// start times and solved records, both keyed by problem key.
type TimerSnapshot struct {
	ActiveTimers   map[string]time.Time    `json:"activeTimers"`
	SolvedProblems map[string]SolvedRecord `json:"solvedProblems"`
}

// StoppedTimer reports one timer auto-stopped by solved-set reconciliation.
type StoppedTimer struct {
	ProblemKey string `json:"problemKey"`
	SolveTime  int64  `json:"solveTime"`
}

// CachedProblemset is the wholesale-refreshed problem catalog cache.
type CachedProblemset struct {
	Problems  []Problem `json:"problems"`
	FetchedAt time.Time `json:"timestamp"`
}

// CachedContestYears maps contest id to the year the contest started.
type CachedContestYears struct {
	Years     map[int64]int `json:"contestMap"`
	FetchedAt time.Time     `json:"timestamp"`
}
