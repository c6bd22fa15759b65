package backend

// Wire shapes of the helpdesk backend API. Field names follow its
// snake_case JSON; timestamps are kept as strings because the backend
// emits both offset and naive ISO-8601 forms.

type userBriefDTO struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type logDTO struct {
	ID        int64         `json:"id"`
	TicketID  int64         `json:"ticket_id"`
	LogType   string        `json:"log_type"`
	Action    string        `json:"action"`
	OldValue  *string       `json:"old_value"`
	NewValue  *string       `json:"new_value"`
	CreatedAt string        `json:"created_at"`
	User      *userBriefDTO `json:"user,omitempty"`
}

type commentDTO struct {
	ID         int64         `json:"id"`
	TicketID   int64         `json:"ticket_id"`
	Content    string        `json:"content"`
	IsInternal bool          `json:"is_internal"`
	CreatedAt  string        `json:"created_at"`
	Author     *userBriefDTO `json:"author,omitempty"`
}

type ticketDTO struct {
	ID                 int64         `json:"id"`
	TicketID           string        `json:"ticket_id"`
	Title              string        `json:"title"`
	Description        string        `json:"description"`
	Status             string        `json:"status"`
	Priority           string        `json:"priority"`
	Category           string        `json:"category"`
	CreatedBy          int64         `json:"created_by"`
	AssignedTo         *int64        `json:"assigned_to"`
	SourceEmailID      *string       `json:"source_email_id"`
	SourceEmailFrom    *string       `json:"source_email_from"`
	SourceEmailSubject *string       `json:"source_email_subject"`
	SLADueDate         *string       `json:"sla_due_date"`
	CreatedAt          string        `json:"created_at"`
	UpdatedAt          string        `json:"updated_at"`
	ResolvedAt         *string       `json:"resolved_at"`
	CreatedByUser      *userBriefDTO `json:"created_by_user,omitempty"`
	AssignedToUser     *userBriefDTO `json:"assigned_to_user,omitempty"`
	Logs               []logDTO      `json:"logs,omitempty"`
	Comments           []commentDTO  `json:"comments,omitempty"`
}

type ticketListDTO struct {
	Items []ticketDTO `json:"items"`
	Total int         `json:"total"`
	Page  int         `json:"page"`
	Size  int         `json:"size"`
	Pages int         `json:"pages"`
}

type createTicketDTO struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Category    string `json:"category"`
	AssignedTo  *int64 `json:"assigned_to,omitempty"`
}

// updateTicketDTO carries only changed fields; a nil assigned_to
// unassigns the ticket.
type updateTicketDTO map[string]any

type createCommentDTO struct {
	Content    string `json:"content"`
	IsInternal bool   `json:"is_internal"`
}

type emailDTO struct {
	ID               int64   `json:"id"`
	Subject          string  `json:"subject"`
	FromAddress      string  `json:"from_address"`
	ReceivedAt       string  `json:"received_at"`
	ProcessedAt      *string `json:"processed_at"`
	IsSAPRelated     *bool   `json:"is_sap_related"`
	DetectedCategory *string `json:"detected_category"`
	TicketCreatedID  *int64  `json:"ticket_created_id"`
}

type emailStatsDTO struct {
	TotalEmails    int     `json:"total_emails"`
	SAPRelated     int     `json:"sap_related"`
	TicketsCreated int     `json:"tickets_created"`
	Unprocessed    int     `json:"unprocessed"`
	LastFetchAt    *string `json:"last_fetch_at"`
}

type fetchResultDTO struct {
	Fetched        int      `json:"fetched"`
	SAPRelated     int      `json:"sap_related"`
	TicketsCreated int      `json:"tickets_created"`
	Errors         []string `json:"errors"`
}

type reprocessDTO struct {
	EmailID         int64  `json:"email_id"`
	IsSAPRelated    bool   `json:"is_sap_related"`
	TicketCreatedID *int64 `json:"ticket_created_id"`
	Message         string `json:"message"`
}

// errorDTO is the backend's error body; FastAPI puts the text in detail.
type errorDTO struct {
	Detail    any    `json:"detail"`
	ErrorCode string `json:"error_code"`
}
