// Package analytics derives dashboard figures from a snapshot of the report
// collection. Every function is pure; dates come from each report's
// createdAt timestamp and reports without one are left out of every
// time-windowed figure.
package analytics

import (
	"sort"
	"strings"
	"time"

	"github.com/pathoreport/pathoreport/internal/domain/report"
)

// RecentLimit caps the number of today's reports shown on the dashboard.
const RecentLimit = 5

const (
	dayLayout   = "2006-01-02"
	monthLayout = "2006-01"
)

// Summary is the dashboard overview for one instant and selected month.
type Summary struct {
	UniquePatients  int             `json:"uniquePatients"`
	LifetimeRevenue float64         `json:"lifetimeRevenue"`
	TodayCount      int             `json:"todayCount"`
	Month           string          `json:"month"`
	MonthlyRevenue  float64         `json:"monthlyRevenue"`
	RecentToday     []report.Report `json:"recentToday"`
}

// UniquePatientCount counts distinct patient names. Two patients who share
// a name count once.
func UniquePatientCount(reports []report.Report) int {
	names := make(map[string]struct{}, len(reports))
	for _, r := range reports {
		names[r.Patient.Name] = struct{}{}
	}
	return len(names)
}

func LifetimeRevenue(reports []report.Report) float64 {
	var sum float64
	for _, r := range reports {
		sum += r.TotalPrice
	}
	return sum
}

// TodayReports returns the reports created on now's UTC date, in
// collection order.
func TodayReports(reports []report.Report, now time.Time) []report.Report {
	return createdWithin(reports, now.UTC().Format(dayLayout))
}

// MonthlyRevenue sums the totals of reports created in month, a YYYY-MM
// token.
func MonthlyRevenue(reports []report.Report, month string) float64 {
	return LifetimeRevenue(createdWithin(reports, month))
}

// RecentToday returns at most RecentLimit of today's reports, in collection
// order.
func RecentToday(reports []report.Report, now time.Time) []report.Report {
	today := TodayReports(reports, now)
	if len(today) > RecentLimit {
		today = today[:RecentLimit]
	}
	return today
}

// Compute builds the dashboard summary. An empty month selects now's UTC
// month.
func Compute(reports []report.Report, now time.Time, month string) Summary {
	if month == "" {
		month = now.UTC().Format(monthLayout)
	}
	return Summary{
		UniquePatients:  UniquePatientCount(reports),
		LifetimeRevenue: LifetimeRevenue(reports),
		TodayCount:      len(TodayReports(reports, now)),
		Month:           month,
		MonthlyRevenue:  MonthlyRevenue(reports, month),
		RecentToday:     RecentToday(reports, now),
	}
}

// ValidMonth reports whether s is a YYYY-MM token.
func ValidMonth(s string) bool {
	_, err := time.Parse(monthLayout, s)
	return err == nil
}

func createdWithin(reports []report.Report, prefix string) []report.Report {
	out := make([]report.Report, 0)
	for _, r := range reports {
		if r.CreatedAt != "" && strings.HasPrefix(r.CreatedAt, prefix) {
			out = append(out, r)
		}
	}
	return out
}

type DayCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

type MonthRevenue struct {
	Month   string  `json:"month"`
	Revenue float64 `json:"revenue"`
}

// DailyCounts counts reports per creation day, oldest first.
func DailyCounts(reports []report.Report) []DayCount {
	counts := make(map[string]int)
	for _, r := range reports {
		if day, ok := datePrefix(r.CreatedAt, len(dayLayout)); ok {
			counts[day]++
		}
	}
	out := make([]DayCount, 0, len(counts))
	for day, n := range counts {
		out = append(out, DayCount{Day: day, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out
}

// RevenueByMonth sums report totals per creation month, oldest first.
func RevenueByMonth(reports []report.Report) []MonthRevenue {
	totals := make(map[string]float64)
	for _, r := range reports {
		if month, ok := datePrefix(r.CreatedAt, len(monthLayout)); ok {
			totals[month] += r.TotalPrice
		}
	}
	out := make([]MonthRevenue, 0, len(totals))
	for month, v := range totals {
		out = append(out, MonthRevenue{Month: month, Revenue: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

func datePrefix(createdAt string, n int) (string, bool) {
	if len(createdAt) < n {
		return "", false
	}
	return createdAt[:n], true
}
