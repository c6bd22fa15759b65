package analytics

import (
	"cmp"
	"slices"

	"github.com/lorrc/sap-helpdesk/internal/core/domain"
)

// Dashboard computes the landing-page summary.
func Dashboard(tickets []*domain.Ticket, opts Options) *domain.DashboardStats {
	today := opts.Today
	dueSoonDays := opts.dueSoonDays()
	weekAgo := today.AddDays(-weekDays)

	stats := &domain.DashboardStats{
		TotalTickets:      len(tickets),
		TicketsByStatus:   make(map[domain.TicketStatus]int),
		TicketsByPriority: make(map[domain.TicketPriority]int),
		AvgResolutionDays: AvgResolutionDays(tickets),
		RecentTickets:     Recent(tickets, RecentTicketsLimit),
	}
	for _, s := range domain.TicketStatuses {
		stats.TicketsByStatus[s] = 0
	}
	for _, p := range domain.TicketPriorities {
		stats.TicketsByPriority[p] = 0
	}

	for _, t := range tickets {
		stats.TicketsByStatus[t.Status]++
		stats.TicketsByPriority[t.Priority]++
		if t.Status == domain.StatusOpen || t.Status == domain.StatusInProgress {
			stats.OpenTickets++
		}
		if t.IsOverdue(today) {
			stats.Overdue++
		}
		if t.IsDueWithin(today, dueSoonDays) {
			stats.DueSoon++
		}
		if !t.CreatedOn.IsZero() && t.CreatedOn.Between(weekAgo, today) {
			stats.CreatedThisWeek++
		}
		if completedBetween(t, weekAgo, today) {
			stats.CompletedThisWeek++
		}
	}
	return stats
}

// Recent returns up to limit tickets, newest createdOn first (ties: higher id first).
func Recent(tickets []*domain.Ticket, limit int) []*domain.Ticket {
	out := slices.Clone(tickets)
	slices.SortStableFunc(out, func(a, b *domain.Ticket) int {
		if c := b.CreatedOn.Compare(a.CreatedOn); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []*domain.Ticket{}
	}
	return out
}

// Full returns the report plus trends over the last days days (today included).
func Full(tickets []*domain.Ticket, opts Options, days int) *domain.FullAnalytics {
	days = ClampDays(days)
	return &domain.FullAnalytics{
		Report:            Summarize(tickets, opts),
		Days:              days,
		DailyTrends:       DailyTrends(tickets, opts.Today, days),
		AvgResolutionDays: AvgResolutionDays(tickets),
		SLAComplianceRate: SLAComplianceRate(tickets),
		Categories:        Categories(tickets),
	}
}

// ClampDays maps a requested trend window into [1, MaxTrendDays]; zero or
// negative selects DefaultTrendDays.
func ClampDays(days int) int {
	switch {
	case days <= 0:
		return DefaultTrendDays
	case days > MaxTrendDays:
		return MaxTrendDays
	}
	return days
}

// DailyTrends counts tickets created and closed per day, oldest day first.
func DailyTrends(tickets []*domain.Ticket, today domain.Date, days int) []domain.VolumePoint {
	first := today.AddDays(-(days - 1))
	points := make([]domain.VolumePoint, days)
	for i := range points {
		points[i].Day = first.AddDays(i)
	}
	for _, t := range tickets {
		if !t.CreatedOn.IsZero() && t.CreatedOn.Between(first, today) {
			points[first.DaysUntil(t.CreatedOn)].CreatedCount++
		}
		if !t.ClosedOn.IsZero() && t.ClosedOn.Between(first, today) {
			points[first.DaysUntil(t.ClosedOn)].ClosedCount++
		}
	}
	return points
}

// AvgResolutionDays is the mean createdOn→closedOn span of closed tickets,
// rounded to one decimal; nil when nothing has been closed.
func AvgResolutionDays(tickets []*domain.Ticket) *float64 {
	var sum, n int
	for _, t := range tickets {
		if t.ClosedOn.IsZero() || t.CreatedOn.IsZero() {
			continue
		}
		sum += t.CreatedOn.DaysUntil(t.ClosedOn)
		n++
	}
	if n == 0 {
		return nil
	}
	avg := round1(float64(sum) / float64(n))
	return &avg
}

// SLAComplianceRate is the share of closed tickets with a due date that were
// closed on or before it; nil when there are none.
func SLAComplianceRate(tickets []*domain.Ticket) *float64 {
	var met, n int
	for _, t := range tickets {
		if t.ClosedOn.IsZero() || t.CompletionBy.IsZero() {
			continue
		}
		n++
		if !t.ClosedOn.After(t.CompletionBy) {
			met++
		}
	}
	if n == 0 {
		return nil
	}
	rate := Percentage(met, n)
	return &rate
}

// Categories lists the modules in use, most tickets first.
func Categories(tickets []*domain.Ticket) []domain.CategorySummary {
	counts := make(map[domain.Module]int)
	for _, t := range tickets {
		if t.Module != "" {
			counts[t.Module]++
		}
	}
	out := make([]domain.CategorySummary, 0, len(counts))
	for _, m := range domain.Modules {
		if counts[m] > 0 {
			out = append(out, domain.CategorySummary{Module: m, Count: counts[m], Description: m.Description()})
		}
	}
	slices.SortStableFunc(out, func(a, b domain.CategorySummary) int {
		return cmp.Compare(b.Count, a.Count)
	})
	return out
}
