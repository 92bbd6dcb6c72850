// Package analytics computes aggregate statistics from workflows and the execution ledger.
package analytics

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/flowmate/flowmate/pkg/models"
	"github.com/flowmate/flowmate/pkg/persistence"
)

// DefaultWindowDays is the lookback window for daily activity buckets.
const DefaultWindowDays = 7

// Summary is the headline view across all workflows and runs.
type Summary struct {
	TotalWorkflows  int     `json:"total_workflows"`
	ActiveWorkflows int     `json:"active_workflows"`
	TotalRuns       int     `json:"total_runs"`
	SuccessfulRuns  int     `json:"successful_runs"`
	FailedRuns      int     `json:"failed_runs"`
	SuccessRate     float64 `json:"success_rate"`
}

// DayActivity is one weekday bucket inside the lookback window.
type DayActivity struct {
	Day     string `json:"day"`
	Success int    `json:"success"`
	Failed  int    `json:"failed"`
}

// TriggerUsage counts workflows per trigger type.
type TriggerUsage struct {
	Trigger string `json:"trigger"`
	Count   int    `json:"count"`
}

// Aggregator recomputes statistics on demand. It holds no state of its own, so
// deleted workflows stop counting while their ledger history keeps counting.
type Aggregator struct {
	persistence persistence.Persistence
}

func NewAggregator(p persistence.Persistence) *Aggregator {
	return &Aggregator{persistence: p}
}

// Summarize computes the headline stats. The success rate covers every ledger
// entry and reports 100.0 when nothing has run yet.
func (a *Aggregator) Summarize(ctx context.Context) (*Summary, error) {
	workflows, err := a.persistence.WorkflowRepository().GetAll(ctx)
	if err != nil {
		return nil, err
	}

	records, err := a.persistence.ExecutionRepository().List(ctx, persistence.ListExecutionsOptions{})
	if err != nil {
		return nil, err
	}

	summary := &Summary{TotalWorkflows: len(workflows), TotalRuns: len(records)}

	for _, workflow := range workflows {
		if workflow.Status == models.WorkflowStatusActive {
			summary.ActiveWorkflows++
		}
	}

	for _, record := range records {
		if record.Succeeded() {
			summary.SuccessfulRuns++
		} else {
			summary.FailedRuns++
		}
	}

	summary.SuccessRate = successRate(summary.SuccessfulRuns, summary.TotalRuns)

	return summary, nil
}

// DailyActivity buckets ledger entries of the last windowDays days by the
// weekday of their timestamp. The lower bound is inclusive. A non-positive
// windowDays falls back to DefaultWindowDays.
func (a *Aggregator) DailyActivity(ctx context.Context, windowDays int) ([]DayActivity, error) {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}

	records, err := a.persistence.ExecutionRepository().List(ctx, persistence.ListExecutionsOptions{})
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().AddDate(0, 0, -windowDays)
	buckets := make(map[string]*DayActivity)

	for _, record := range records {
		if record.Timestamp.Before(cutoff) {
			continue
		}

		day := record.Timestamp.Weekday().String()

		bucket, ok := buckets[day]
		if !ok {
			bucket = &DayActivity{Day: day}
			buckets[day] = bucket
		}

		if record.Succeeded() {
			bucket.Success++
		} else {
			bucket.Failed++
		}
	}

	// Walk the window oldest day first so consumers get a stable order.
	activity := make([]DayActivity, 0, len(buckets))

	for i := windowDays - 1; i >= 0; i-- {
		day := time.Now().AddDate(0, 0, -i).Weekday().String()
		if bucket, ok := buckets[day]; ok {
			activity = append(activity, *bucket)
			delete(buckets, day)
		}
	}

	return activity, nil
}

// TriggerUsageByType counts stored workflows per trigger type, most used first.
func (a *Aggregator) TriggerUsageByType(ctx context.Context) ([]TriggerUsage, error) {
	workflows, err := a.persistence.WorkflowRepository().GetAll(ctx)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	order := make([]string, 0)

	for _, workflow := range workflows {
		if _, seen := counts[workflow.Trigger.Type]; !seen {
			order = append(order, workflow.Trigger.Type)
		}

		counts[workflow.Trigger.Type]++
	}

	usage := make([]TriggerUsage, 0, len(order))
	for _, trigger := range order {
		usage = append(usage, TriggerUsage{Trigger: trigger, Count: counts[trigger]})
	}

	sort.SliceStable(usage, func(i, j int) bool {
		return usage[i].Count > usage[j].Count
	})

	return usage, nil
}

// successRate rounds to one decimal and treats an empty ledger as fully
// healthy.
func successRate(successful, total int) float64 {
	if total == 0 {
		return 100.0
	}

	return math.Round(float64(successful)/float64(total)*1000) / 10
}
