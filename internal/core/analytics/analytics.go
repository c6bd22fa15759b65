// Package analytics derives summary statistics from a ticket list.
//
// Every function is a pure function of its inputs: callers compute "today"
// once (from an injected clock) and pass it in, so one aggregation call uses
// a single cutoff for the whole batch and results are reproducible in tests.
package analytics

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"github.com/lorrc/sap-helpdesk/internal/core/domain"
	apperrors "github.com/lorrc/sap-helpdesk/internal/core/errors"
)

const (
	DefaultDueSoonDays = 7
	DefaultTrendDays   = 30
	MaxTrendDays       = 365
	RecentTicketsLimit = 5
	weekDays           = 7
)

// Options control Summarize.
type Options struct {
	Today       domain.Date
	DueSoonDays int // <= 0 means DefaultDueSoonDays
}

func (o Options) dueSoonDays() int {
	if o.DueSoonDays <= 0 {
		return DefaultDueSoonDays
	}
	return o.DueSoonDays
}

// Percentage is count/total as a percentage rounded to one decimal; 0 when
// total is 0.
func Percentage(count, total int) float64 {
	if total <= 0 {
		return 0
	}
	return round1(float64(count) / float64(total) * 100)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Summarize builds the full analytics report.
func Summarize(tickets []*domain.Ticket, opts Options) *domain.AnalyticsReport {
	today := opts.Today
	dueSoonDays := opts.dueSoonDays()
	total := len(tickets)

	report := &domain.AnalyticsReport{
		Today:       today,
		Total:       total,
		DueSoonDays: dueSoonDays,
		Overdue:     []domain.OverdueTicket{},
		DueSoon:     []domain.UpcomingTicket{},
	}

	statusCounts := make(map[domain.TicketStatus]int)
	priorityCounts := make(map[domain.TicketPriority]int)
	moduleCounts := make(map[domain.Module]int)
	assigneeCounts := make(map[string]int)
	weekAgo := today.AddDays(-weekDays)

	for _, t := range tickets {
		statusCounts[t.Status]++
		priorityCounts[t.Priority]++
		if t.Module != "" {
			moduleCounts[t.Module]++
		}
		assigneeCounts[assigneeName(t)]++

		if t.IsOverdue(today) {
			report.Overdue = append(report.Overdue, domain.OverdueTicket{
				Ticket:      t,
				DaysOverdue: t.CompletionBy.DaysUntil(today),
			})
		}
		if t.IsDueWithin(today, dueSoonDays) {
			report.DueSoon = append(report.DueSoon, domain.UpcomingTicket{
				Ticket:       t,
				DaysUntilDue: today.DaysUntil(t.CompletionBy),
			})
		}
		if !t.CreatedOn.IsZero() && t.CreatedOn.Between(weekAgo, today) {
			report.CreatedThisWeek++
		}
		if completedBetween(t, weekAgo, today) {
			report.CompletedThisWeek++
		}
	}

	slices.SortStableFunc(report.Overdue, func(a, b domain.OverdueTicket) int {
		return cmp.Compare(b.DaysOverdue, a.DaysOverdue)
	})
	slices.SortStableFunc(report.DueSoon, func(a, b domain.UpcomingTicket) int {
		return cmp.Compare(a.DaysUntilDue, b.DaysUntilDue)
	})
	report.OverdueCount = len(report.Overdue)
	report.DueSoonCount = len(report.DueSoon)

	for _, s := range domain.TicketStatuses {
		report.StatusSummary = append(report.StatusSummary, domain.StatusCount{
			Status: s, Count: statusCounts[s], Percentage: Percentage(statusCounts[s], total),
		})
	}
	for _, p := range domain.TicketPriorities {
		report.PriorityDistribution = append(report.PriorityDistribution, domain.PriorityCount{
			Priority: p, Count: priorityCounts[p], Percentage: Percentage(priorityCounts[p], total),
		})
	}
	for _, m := range domain.Modules {
		report.ModuleDistribution = append(report.ModuleDistribution, domain.ModuleCount{
			Module: m, Description: m.Description(), Count: moduleCounts[m], Percentage: Percentage(moduleCounts[m], total),
		})
	}
	report.AssigneeDistribution = make([]domain.AssigneeCount, 0, len(assigneeCounts))
	for _, name := range sortedNames(assigneeCounts) {
		report.AssigneeDistribution = append(report.AssigneeDistribution, domain.AssigneeCount{
			Assignee: name, Count: assigneeCounts[name], Percentage: Percentage(assigneeCounts[name], total),
		})
	}
	report.Workload = Workload(tickets, today)

	return report
}

// Workload groups tickets by assignee, ordered by assignee name.
func Workload(tickets []*domain.Ticket, today domain.Date) []domain.WorkloadItem {
	groups := make(map[string]*domain.WorkloadItem)
	for _, t := range tickets {
		name := assigneeName(t)
		item, ok := groups[name]
		if !ok {
			item = &domain.WorkloadItem{Assignee: name}
			groups[name] = item
		}
		item.Total++
		switch t.Status {
		case domain.StatusOpen:
			item.Open++
		case domain.StatusInProgress:
			item.InProgress++
		case domain.StatusCompleted:
			item.Completed++
		}
		if t.IsOverdue(today) {
			item.Overdue++
		}
	}

	counts := make(map[string]int, len(groups))
	for name, item := range groups {
		counts[name] = item.Total
	}
	out := make([]domain.WorkloadItem, 0, len(groups))
	for _, name := range sortedNames(counts) {
		item := groups[name]
		if item.Total > 0 {
			item.CompletionRate = int(math.Round(float64(item.Completed) / float64(item.Total) * 100))
		}
		out = append(out, *item)
	}
	return out
}

// DateRange partitions tickets created and closed within [start, end].
func DateRange(tickets []*domain.Ticket, start, end domain.Date) (*domain.DateRangeReport, error) {
	if start.IsZero() || end.IsZero() {
		return nil, apperrors.NewValidationError(apperrors.ErrInvalidDateRange, "start and end dates are required", nil)
	}
	if start.After(end) {
		return nil, apperrors.ErrInvalidDateRange
	}

	report := &domain.DateRangeReport{
		Start:          start,
		End:            end,
		TicketsCreated: []*domain.Ticket{},
		TicketsClosed:  []*domain.Ticket{},
	}
	for _, t := range tickets {
		if !t.CreatedOn.IsZero() && t.CreatedOn.Between(start, end) {
			report.TicketsCreated = append(report.TicketsCreated, t)
		}
		if !t.ClosedOn.IsZero() && t.ClosedOn.Between(start, end) {
			report.TicketsClosed = append(report.TicketsClosed, t)
		}
	}
	report.CreatedCount = len(report.TicketsCreated)
	report.ClosedCount = len(report.TicketsClosed)
	return report, nil
}

func completedBetween(t *domain.Ticket, from, to domain.Date) bool {
	return t.Status == domain.StatusCompleted && !t.ClosedOn.IsZero() && t.ClosedOn.Between(from, to)
}

func assigneeName(t *domain.Ticket) string {
	if strings.TrimSpace(t.AssignedTo) == "" {
		return domain.UnassignedName
	}
	return t.AssignedTo
}

// sortedNames orders names case-insensitively, ties broken by raw value.
func sortedNames(m map[string]int) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	slices.SortFunc(names, func(a, b string) int {
		if c := strings.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	return names
}
