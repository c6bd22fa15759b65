package domain

// StatusCount is one bar of the status histogram.
type StatusCount struct {
	Status     TicketStatus `json:"status"`
	Count      int          `json:"count"`
	Percentage float64      `json:"percentage"`
}

type PriorityCount struct {
	Priority   TicketPriority `json:"priority"`
	Count      int            `json:"count"`
	Percentage float64        `json:"percentage"`
}

type ModuleCount struct {
	Module      Module  `json:"module"`
	Description string  `json:"description"`
	Count       int     `json:"count"`
	Percentage  float64 `json:"percentage"`
}

type AssigneeCount struct {
	Assignee   string  `json:"assignee"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// OverdueTicket pairs a ticket with how many days it is past due.
type OverdueTicket struct {
	Ticket      *Ticket `json:"ticket"`
	DaysOverdue int     `json:"daysOverdue"`
}

type UpcomingTicket struct {
	Ticket       *Ticket `json:"ticket"`
	DaysUntilDue int     `json:"daysUntilDue"`
}

// WorkloadItem is the per-assignee workload summary.
type WorkloadItem struct {
	Assignee       string `json:"assignee"`
	Total          int    `json:"total"`
	Open           int    `json:"open"`
	InProgress     int    `json:"inProgress"`
	Completed      int    `json:"completed"`
	Overdue        int    `json:"overdue"`
	CompletionRate int    `json:"completionRate"`
}

// AnalyticsReport is the full set of derived statistics for a ticket list.
type AnalyticsReport struct {
	Today                Date             `json:"today"`
	Total                int              `json:"total"`
	StatusSummary        []StatusCount    `json:"statusSummary"`
	PriorityDistribution []PriorityCount  `json:"priorityDistribution"`
	ModuleDistribution   []ModuleCount    `json:"moduleDistribution"`
	AssigneeDistribution []AssigneeCount  `json:"assigneeDistribution"`
	Overdue              []OverdueTicket  `json:"overdue"`
	OverdueCount         int              `json:"overdueCount"`
	DueSoon              []UpcomingTicket `json:"dueSoon"`
	DueSoonCount         int              `json:"dueSoonCount"`
	DueSoonDays          int              `json:"dueSoonDays"`
	CompletedThisWeek    int              `json:"completedThisWeek"`
	CreatedThisWeek      int              `json:"createdThisWeek"`
	Workload             []WorkloadItem   `json:"workload"`
}

// DateRangeReport partitions tickets created and closed inside [Start, End].
type DateRangeReport struct {
	Start          Date      `json:"start"`
	End            Date      `json:"end"`
	TicketsCreated []*Ticket `json:"ticketsCreated"`
	TicketsClosed  []*Ticket `json:"ticketsClosed"`
	CreatedCount   int       `json:"createdCount"`
	ClosedCount    int       `json:"closedCount"`
}

// DashboardStats is the compact summary for the landing page.
type DashboardStats struct {
	TotalTickets      int                    `json:"totalTickets"`
	OpenTickets       int                    `json:"openTickets"`
	Overdue           int                    `json:"overdue"`
	DueSoon           int                    `json:"dueSoon"`
	CompletedThisWeek int                    `json:"completedThisWeek"`
	CreatedThisWeek   int                    `json:"createdThisWeek"`
	AvgResolutionDays *float64               `json:"avgResolutionDays"`
	TicketsByStatus   map[TicketStatus]int   `json:"ticketsByStatus"`
	TicketsByPriority map[TicketPriority]int `json:"ticketsByPriority"`
	RecentTickets     []*Ticket              `json:"recentTickets"`
}

// VolumePoint counts tickets created and closed on one day.
type VolumePoint struct {
	Day          Date `json:"date"`
	CreatedCount int  `json:"created"`
	ClosedCount  int  `json:"closed"`
}

type CategorySummary struct {
	Module      Module `json:"category"`
	Count       int    `json:"count"`
	Description string `json:"description"`
}

// FullAnalytics extends the report with trends over a window of days.
type FullAnalytics struct {
	Report            *AnalyticsReport  `json:"report"`
	Days              int               `json:"days"`
	DailyTrends       []VolumePoint     `json:"dailyTrends"`
	AvgResolutionDays *float64          `json:"avgResolutionDays"`
	SLAComplianceRate *float64          `json:"slaComplianceRate"`
	Categories        []CategorySummary `json:"categories"`
}
