package sqlite

import (
	"time"

	"github.com/lorrc/sap-helpdesk/internal/core/domain"
)

// ticketRecord is the row shape of a ticket. Sub-collections are stored as
// JSON text; dates as YYYY-MM-DD text so they sort lexically.
type ticketRecord struct {
	ID              int64               `gorm:"column:id;primaryKey;autoIncrement:false"`
	Title           string              `gorm:"column:title;type:text;not null"`
	Description     string              `gorm:"column:description;type:text;not null"`
	Status          string              `gorm:"column:status;type:text;not null;index"`
	Priority        string              `gorm:"column:priority;type:text;not null"`
	Module          string              `gorm:"column:module;type:text"`
	AssignedTo      string              `gorm:"column:assigned_to;type:text;not null"`
	AssignedToEmail string              `gorm:"column:assigned_to_email;type:text"`
	RaisedBy        string              `gorm:"column:raised_by;type:text;not null"`
	CreatedBy       string              `gorm:"column:created_by;type:text;not null"`
	Tags            []string            `gorm:"column:tags;type:text;serializer:json"`
	CreatedOn       string              `gorm:"column:created_on;type:text;not null"`
	CompletionBy    *string             `gorm:"column:completion_by;type:text;index"`
	ClosedOn        *string             `gorm:"column:closed_on;type:text"`
	Comments        []domain.Comment    `gorm:"column:comments;type:text;serializer:json"`
	Logs            []domain.LogEntry   `gorm:"column:logs;type:text;serializer:json"`
	Attachments     []domain.Attachment `gorm:"column:attachments;type:text;serializer:json"`
	EmailSource     *domain.EmailSource `gorm:"column:email_source;type:text;serializer:json"`
	UpdatedAt       time.Time           `gorm:"column:updated_at"`
}

func (ticketRecord) TableName() string {
	return "tickets"
}

type userRecord struct {
	ID        string     `gorm:"column:id;primaryKey;type:text"`
	Email     string     `gorm:"column:email;type:text;not null;uniqueIndex"`
	Name      string     `gorm:"column:name;type:text;not null"`
	IsAdmin   bool       `gorm:"column:is_admin;not null"`
	IsActive  bool       `gorm:"column:is_active;not null"`
	LastLogin *time.Time `gorm:"column:last_login"`
	CreatedAt time.Time  `gorm:"column:created_at;not null"`
}

func (userRecord) TableName() string {
	return "users"
}

type adminRecord struct {
	ID      string    `gorm:"column:id;primaryKey;type:text"`
	Email   string    `gorm:"column:email;type:text;not null"`
	Name    string    `gorm:"column:name;type:text;not null"`
	AddedBy string    `gorm:"column:added_by;type:text;not null"`
	AddedAt time.Time `gorm:"column:added_at;not null"`
}

func (adminRecord) TableName() string {
	return "admin_users"
}

type auditRecord struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Action       string    `gorm:"column:action;type:text;not null"`
	ActorEmail   string    `gorm:"column:actor_email;type:text;not null"`
	TargetUserID string    `gorm:"column:target_user_id;type:text;not null"`
	TargetEmail  string    `gorm:"column:target_email;type:text;not null"`
	Details      string    `gorm:"column:details;type:text"`
	CreatedAt    time.Time `gorm:"column:created_at;not null;index"`
}

func (auditRecord) TableName() string {
	return "admin_audit_logs"
}

// sequenceRecord holds the highest id ever issued per table, so deleted
// ids are not handed out again.
type sequenceRecord struct {
	Name   string `gorm:"column:name;primaryKey;type:text"`
	LastID int64  `gorm:"column:last_id;not null"`
}

func (sequenceRecord) TableName() string {
	return "sequences"
}

func toTicketRecord(t *domain.Ticket) ticketRecord {
	rec := ticketRecord{
		ID:              t.ID,
		Title:           t.Title,
		Description:     t.Description,
		Status:          string(t.Status),
		Priority:        string(t.Priority),
		Module:          string(t.Module),
		AssignedTo:      t.AssignedTo,
		AssignedToEmail: t.AssignedToEmail,
		RaisedBy:        t.RaisedBy,
		CreatedBy:       t.CreatedBy,
		Tags:            t.Tags,
		CreatedOn:       t.CreatedOn.String(),
		CompletionBy:    datePtr(t.CompletionBy),
		ClosedOn:        datePtr(t.ClosedOn),
		Comments:        t.Comments,
		Logs:            t.Logs,
		Attachments:     t.Attachments,
		EmailSource:     t.EmailSource,
	}
	if rec.AssignedTo == "" {
		rec.AssignedTo = domain.UnassignedName
	}
	if rec.Tags == nil {
		rec.Tags = []string{}
	}
	if rec.Comments == nil {
		rec.Comments = []domain.Comment{}
	}
	if rec.Logs == nil {
		rec.Logs = []domain.LogEntry{}
	}
	if rec.Attachments == nil {
		rec.Attachments = []domain.Attachment{}
	}
	return rec
}

func (r ticketRecord) toDomain() (*domain.Ticket, error) {
	createdOn, err := domain.ParseDate(r.CreatedOn)
	if err != nil {
		return nil, err
	}
	due, err := parseDatePtr(r.CompletionBy)
	if err != nil {
		return nil, err
	}
	closed, err := parseDatePtr(r.ClosedOn)
	if err != nil {
		return nil, err
	}

	t := &domain.Ticket{
		ID:              r.ID,
		Title:           r.Title,
		Description:     r.Description,
		Status:          domain.TicketStatus(r.Status),
		Priority:        domain.TicketPriority(r.Priority),
		Module:          domain.Module(r.Module),
		AssignedTo:      r.AssignedTo,
		AssignedToEmail: r.AssignedToEmail,
		RaisedBy:        r.RaisedBy,
		CreatedBy:       r.CreatedBy,
		Tags:            r.Tags,
		CreatedOn:       createdOn,
		CompletionBy:    due,
		ClosedOn:        closed,
		Comments:        r.Comments,
		Logs:            r.Logs,
		Attachments:     r.Attachments,
		EmailSource:     r.EmailSource,
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	if t.Comments == nil {
		t.Comments = []domain.Comment{}
	}
	if t.Logs == nil {
		t.Logs = []domain.LogEntry{}
	}
	if t.Attachments == nil {
		t.Attachments = []domain.Attachment{}
	}
	return t, nil
}

func toUserRecord(u *domain.User) userRecord {
	rec := userRecord{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		IsAdmin:   u.IsAdmin,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
	if !u.LastLogin.IsZero() {
		last := u.LastLogin
		rec.LastLogin = &last
	}
	return rec
}

func (r userRecord) toDomain() *domain.User {
	u := &domain.User{
		ID:        r.ID,
		Email:     r.Email,
		Name:      r.Name,
		IsAdmin:   r.IsAdmin,
		IsActive:  r.IsActive,
		CreatedAt: r.CreatedAt.UTC(),
	}
	if r.LastLogin != nil {
		u.LastLogin = r.LastLogin.UTC()
	}
	return u
}

func toAdminRecord(a *domain.AdminUser) adminRecord {
	return adminRecord{ID: a.ID, Email: a.Email, Name: a.Name, AddedBy: a.AddedBy, AddedAt: a.AddedAt}
}

func (r adminRecord) toDomain() *domain.AdminUser {
	return &domain.AdminUser{ID: r.ID, Email: r.Email, Name: r.Name, AddedBy: r.AddedBy, AddedAt: r.AddedAt.UTC()}
}

func (r auditRecord) toDomain() *domain.AdminAuditLog {
	return &domain.AdminAuditLog{
		ID:           r.ID,
		Action:       domain.AuditAction(r.Action),
		ActorEmail:   r.ActorEmail,
		TargetUserID: r.TargetUserID,
		TargetEmail:  r.TargetEmail,
		Details:      r.Details,
		CreatedAt:    r.CreatedAt.UTC(),
	}
}

func datePtr(d domain.Date) *string {
	if d.IsZero() {
		return nil
	}
	s := d.String()
	return &s
}

func parseDatePtr(s *string) (domain.Date, error) {
	if s == nil {
		return domain.Date{}, nil
	}
	return domain.ParseDate(*s)
}
