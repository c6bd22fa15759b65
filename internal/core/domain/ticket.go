package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"

	apperrors "github.com/lorrc/sap-helpdesk/internal/core/errors"
)

// Validation limits
const (
	MaxTitleLength       = 255
	MaxDescriptionLength = 10000
	MaxCommentLength     = 5000

	UnassignedName = "Unassigned"
	SystemActor    = "System"
)

// TicketStatus represents the possible states of a ticket.
type TicketStatus string

const (
	StatusOpen       TicketStatus = "Open"
	StatusInProgress TicketStatus = "In Progress"
	StatusOnHold     TicketStatus = "On Hold"
	StatusCompleted  TicketStatus = "Completed"
	StatusCancelled  TicketStatus = "Cancelled"
)

// TicketStatuses lists every status in display order.
var TicketStatuses = []TicketStatus{StatusOpen, StatusInProgress, StatusOnHold, StatusCompleted, StatusCancelled}

func (s TicketStatus) IsValid() bool {
	return slices.Contains(TicketStatuses, s)
}

// IsTerminal reports whether the status closes the ticket.
func (s TicketStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// TicketPriority represents the urgency of a ticket.
type TicketPriority string

const (
	PriorityCritical TicketPriority = "Critical"
	PriorityHigh     TicketPriority = "High"
	PriorityMedium   TicketPriority = "Medium"
	PriorityLow      TicketPriority = "Low"
)

var TicketPriorities = []TicketPriority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}

func (p TicketPriority) IsValid() bool {
	return slices.Contains(TicketPriorities, p)
}

// Module is the SAP functional area a ticket concerns. The empty Module
// means the ticket has not been classified.
type Module string

const (
	ModuleMM    Module = "MM"
	ModulePP    Module = "PP"
	ModuleFICO  Module = "FICO"
	ModuleSD    Module = "SD"
	ModuleHCM   Module = "HCM"
	ModuleWM    Module = "WM"
	ModuleQM    Module = "QM"
	ModulePM    Module = "PM"
	ModulePS    Module = "PS"
	ModuleOther Module = "Other"
)

var Modules = []Module{ModuleMM, ModulePP, ModuleFICO, ModuleSD, ModuleHCM, ModuleWM, ModuleQM, ModulePM, ModulePS, ModuleOther}

var moduleDescriptions = map[Module]string{
	ModuleMM:    "Material Management",
	ModulePP:    "Production Planning",
	ModuleFICO:  "Finance & Controlling",
	ModuleSD:    "Sales & Distribution",
	ModuleHCM:   "Human Capital Management",
	ModuleWM:    "Warehouse Management",
	ModuleQM:    "Quality Management",
	ModulePM:    "Plant Maintenance",
	ModulePS:    "Project System",
	ModuleOther: "Other/Unknown",
}

func (m Module) IsValid() bool {
	return slices.Contains(Modules, m)
}

// ParseModule matches s against the known module codes, ignoring case.
func ParseModule(s string) (Module, bool) {
	for _, m := range Modules {
		if strings.EqualFold(string(m), strings.TrimSpace(s)) {
			return m, true
		}
	}
	return "", false
}

// Description returns the SAP area name, or the module code itself when unknown.
func (m Module) Description() string {
	if d, ok := moduleDescriptions[m]; ok {
		return d
	}
	return string(m)
}

// CommentRole is informational only.
type CommentRole string

const (
	RoleRaiser   CommentRole = "raiser"
	RoleAssignee CommentRole = "assignee"
	RoleViewer   CommentRole = "viewer"
)

func (r CommentRole) IsValid() bool {
	return r == RoleRaiser || r == RoleAssignee || r == RoleViewer
}

// LogAction classifies an audit log entry.
type LogAction string

const (
	ActionTicketCreated   LogAction = "ticket_created"
	ActionAssigned        LogAction = "assigned"
	ActionStatusChanged   LogAction = "status_changed"
	ActionPriorityChanged LogAction = "priority_changed"
	ActionCommentAdded    LogAction = "comment_added"
	ActionTicketClosed    LogAction = "ticket_closed"
	ActionTicketUpdated   LogAction = "ticket_updated"
)

type Comment struct {
	ID        int64       `json:"id"`
	Author    string      `json:"author"`
	Role      CommentRole `json:"role"`
	Message   string      `json:"message"`
	Timestamp time.Time   `json:"timestamp"`
}

type LogEntry struct {
	ID          int64     `json:"id"`
	Action      LogAction `json:"action"`
	PerformedBy string    `json:"performedBy"`
	Timestamp   time.Time `json:"timestamp"`
	Details     string    `json:"details"`
}

// Attachment carries file metadata; content lives elsewhere.
type Attachment struct {
	FileName    string    `json:"fileName"`
	ContentType string    `json:"contentType,omitempty"`
	Size        int64     `json:"size,omitempty"`
	UploadedBy  string    `json:"uploadedBy,omitempty"`
	UploadedAt  time.Time `json:"uploadedAt,omitzero"`
}

// EmailSource links a ticket to the email the ingestion pipeline built it from.
type EmailSource struct {
	EmailID    string    `json:"emailId"`
	Subject    string    `json:"subject"`
	From       string    `json:"from"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// Ticket is the core domain entity.
type Ticket struct {
	ID              int64          `json:"id"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	Status          TicketStatus   `json:"status"`
	Priority        TicketPriority `json:"priority"`
	Module          Module         `json:"module,omitempty"`
	AssignedTo      string         `json:"assignedTo"`
	AssignedToEmail string         `json:"assignedToEmail,omitempty"`
	RaisedBy        string         `json:"raisedBy"`
	CreatedBy       string         `json:"createdBy"`
	Tags            []string       `json:"tags"`
	CreatedOn       Date           `json:"createdOn"`
	CompletionBy    Date           `json:"completionBy"`
	ClosedOn        Date           `json:"closedOn"`
	Comments        []Comment      `json:"comments"`
	Logs            []LogEntry     `json:"logs"`
	Attachments     []Attachment   `json:"attachments"`
	EmailSource     *EmailSource   `json:"emailSource,omitempty"`
}

// TicketParams is the input for creating a ticket.
type TicketParams struct {
	Title           string
	Description     string
	Priority        TicketPriority
	Module          Module
	AssignedTo      string
	AssignedToEmail string
	RaisedBy        string
	CompletionBy    Date
	Tags            []string
	Attachments     []Attachment
}

// Validate checks the params and returns all field errors at once.
func (p TicketParams) Validate() error {
	errs := apperrors.NewValidationErrors()

	title := strings.TrimSpace(p.Title)
	if title == "" {
		errs.Add("title", apperrors.ErrTitleRequired.Error())
	} else if len(title) > MaxTitleLength {
		errs.Add("title", apperrors.ErrTitleTooLong.Error())
	}
	if len(p.Description) > MaxDescriptionLength {
		errs.Add("description", apperrors.ErrDescriptionTooLong.Error())
	}
	if p.Priority != "" && !p.Priority.IsValid() {
		errs.Add("priority", apperrors.ErrInvalidPriority.Error())
	}
	if p.Module != "" && !p.Module.IsValid() {
		errs.Add("module", apperrors.ErrInvalidModule.Error())
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// NewTicket is a factory function to create a valid new ticket. The ID is
// left at zero for the store to assign.
func NewTicket(p TicketParams, today Date, now time.Time) (*Ticket, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	priority := p.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	assignee := strings.TrimSpace(p.AssignedTo)
	if assignee == "" {
		assignee = UnassignedName
	}
	raisedBy := strings.TrimSpace(p.RaisedBy)
	if raisedBy == "" {
		raisedBy = SystemActor
	}

	t := &Ticket{
		Title:           strings.TrimSpace(p.Title),
		Description:     p.Description,
		Status:          StatusOpen,
		Priority:        priority,
		Module:          p.Module,
		AssignedTo:      assignee,
		AssignedToEmail: p.AssignedToEmail,
		RaisedBy:        raisedBy,
		CreatedBy:       raisedBy,
		Tags:            normalizeTags(p.Tags),
		CreatedOn:       today,
		CompletionBy:    p.CompletionBy,
		Comments:        []Comment{},
		Logs:            []LogEntry{},
		Attachments:     slices.Clone(p.Attachments),
	}
	if t.Attachments == nil {
		t.Attachments = []Attachment{}
	}

	details := "Ticket created"
	if assignee != UnassignedName {
		details = fmt.Sprintf("Ticket created and assigned to %s", assignee)
	}
	t.AppendLog(ActionTicketCreated, raisedBy, details, now)
	return t, nil
}

// AppendLog adds an audit entry with the next log id.
func (t *Ticket) AppendLog(action LogAction, performedBy, details string, at time.Time) LogEntry {
	var next int64 = 1
	for _, l := range t.Logs {
		if l.ID >= next {
			next = l.ID + 1
		}
	}
	entry := LogEntry{
		ID:          next,
		Action:      action,
		PerformedBy: performedBy,
		Timestamp:   at.UTC(),
		Details:     details,
	}
	t.Logs = append(t.Logs, entry)
	return entry
}

// AddComment appends a comment and its comment_added log entry.
func (t *Ticket) AddComment(author string, role CommentRole, message string, at time.Time) (Comment, error) {
	author = strings.TrimSpace(author)
	message = strings.TrimSpace(message)
	switch {
	case author == "":
		return Comment{}, apperrors.ErrAuthorRequired
	case message == "":
		return Comment{}, apperrors.ErrCommentBodyRequired
	case len(message) > MaxCommentLength:
		return Comment{}, apperrors.ErrCommentBodyTooLong
	}
	if role == "" {
		role = RoleViewer
	}

	var next int64 = 1
	for _, c := range t.Comments {
		if c.ID >= next {
			next = c.ID + 1
		}
	}
	c := Comment{
		ID:        next,
		Author:    author,
		Role:      role,
		Message:   message,
		Timestamp: at.UTC(),
	}
	t.Comments = append(t.Comments, c)
	t.AppendLog(ActionCommentAdded, author, "Comment added", at)
	return c, nil
}

// TicketChanges is a partial update; nil fields are left untouched.
type TicketChanges struct {
	Title           *string
	Description     *string
	Status          *TicketStatus
	Priority        *TicketPriority
	Module          *Module
	AssignedTo      *string
	AssignedToEmail *string
	CompletionBy    *Date
	Tags            *[]string
}

// Apply validates and applies changes, then appends exactly one log entry
// describing them. It returns the names of the fields that actually changed;
// when nothing changed no log entry is written. On error the ticket is left
// untouched.
func (t *Ticket) Apply(c TicketChanges, actor string, today Date, now time.Time) ([]string, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	if c.Status != nil && *c.Status != t.Status && t.Status.IsTerminal() {
		return nil, apperrors.ErrTicketClosed
	}

	next := *t
	var changed []string

	if c.Title != nil && strings.TrimSpace(*c.Title) != t.Title {
		next.Title = strings.TrimSpace(*c.Title)
		changed = append(changed, "title")
	}
	if c.Description != nil && *c.Description != t.Description {
		next.Description = *c.Description
		changed = append(changed, "description")
	}
	if c.Status != nil && *c.Status != t.Status {
		next.Status = *c.Status
		changed = append(changed, "status")
	}
	if c.Priority != nil && *c.Priority != t.Priority {
		next.Priority = *c.Priority
		changed = append(changed, "priority")
	}
	if c.Module != nil && *c.Module != t.Module {
		next.Module = *c.Module
		changed = append(changed, "module")
	}
	if c.AssignedTo != nil {
		assignee := strings.TrimSpace(*c.AssignedTo)
		if assignee == "" {
			assignee = UnassignedName
		}
		if assignee != t.AssignedTo {
			next.AssignedTo = assignee
			changed = append(changed, "assignedTo")
		}
	}
	if c.AssignedToEmail != nil && *c.AssignedToEmail != t.AssignedToEmail {
		next.AssignedToEmail = *c.AssignedToEmail
		if !slices.Contains(changed, "assignedTo") {
			changed = append(changed, "assignedTo")
		}
	}
	if c.CompletionBy != nil && !c.CompletionBy.Equal(t.CompletionBy) {
		next.CompletionBy = *c.CompletionBy
		changed = append(changed, "completionBy")
	}
	if c.Tags != nil {
		tags := normalizeTags(*c.Tags)
		if !slices.Equal(tags, t.Tags) {
			next.Tags = tags
			changed = append(changed, "tags")
		}
	}

	if len(changed) == 0 {
		return nil, nil
	}

	closing := next.Status != t.Status && next.Status.IsTerminal()
	if closing && next.ClosedOn.IsZero() {
		next.ClosedOn = today
	}

	if actor == "" {
		actor = SystemActor
	}
	action, details := describeChange(t, &next, changed, closing)
	*t = next
	t.AppendLog(action, actor, details, now)
	return changed, nil
}

func (c TicketChanges) validate() error {
	errs := apperrors.NewValidationErrors()
	if c.Title != nil {
		title := strings.TrimSpace(*c.Title)
		if title == "" {
			errs.Add("title", apperrors.ErrTitleRequired.Error())
		} else if len(title) > MaxTitleLength {
			errs.Add("title", apperrors.ErrTitleTooLong.Error())
		}
	}
	if c.Description != nil && len(*c.Description) > MaxDescriptionLength {
		errs.Add("description", apperrors.ErrDescriptionTooLong.Error())
	}
	if c.Status != nil && !c.Status.IsValid() {
		errs.Add("status", apperrors.ErrInvalidStatus.Error())
	}
	if c.Priority != nil && !c.Priority.IsValid() {
		errs.Add("priority", apperrors.ErrInvalidPriority.Error())
	}
	if c.Module != nil && *c.Module != "" && !c.Module.IsValid() {
		errs.Add("module", apperrors.ErrInvalidModule.Error())
	}
	if errs.HasErrors() {
		return errs
	}
	return nil
}

func describeChange(prev, next *Ticket, changed []string, closing bool) (LogAction, string) {
	if len(changed) == 1 {
		switch changed[0] {
		case "status":
			details := fmt.Sprintf("Status changed from %s to %s", prev.Status, next.Status)
			if closing {
				return ActionTicketClosed, details
			}
			return ActionStatusChanged, details
		case "assignedTo":
			return ActionAssigned, fmt.Sprintf("Ticket assigned to %s", next.AssignedTo)
		case "priority":
			return ActionPriorityChanged, fmt.Sprintf("Priority changed from %s to %s", prev.Priority, next.Priority)
		}
	}
	details := "Updated fields: " + strings.Join(changed, ", ")
	if closing {
		return ActionTicketClosed, details
	}
	return ActionTicketUpdated, details
}

// IsOverdue reports whether the due date has passed for an open ticket.
func (t *Ticket) IsOverdue(today Date) bool {
	return !t.Status.IsTerminal() && !t.CompletionBy.IsZero() && t.CompletionBy.Before(today)
}

// IsDueWithin reports whether an open ticket is due in [today, today+days].
func (t *Ticket) IsDueWithin(today Date, days int) bool {
	if t.Status.IsTerminal() || t.CompletionBy.IsZero() {
		return false
	}
	return t.CompletionBy.Between(today, today.AddDays(days))
}

// Clone returns a deep copy so callers never share slices with a store.
func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	c := *t
	c.Tags = slices.Clone(t.Tags)
	c.Comments = slices.Clone(t.Comments)
	c.Logs = slices.Clone(t.Logs)
	c.Attachments = slices.Clone(t.Attachments)
	if t.EmailSource != nil {
		src := *t.EmailSource
		c.EmailSource = &src
	}
	return &c
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || slices.Contains(out, tag) {
			continue
		}
		out = append(out, tag)
	}
	return out
}
