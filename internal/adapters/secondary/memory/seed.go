package memory

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/lorrc/sap-helpdesk/internal/core/domain"
)

//go:embed seed/*.json
var seedFS embed.FS

type registrySeed struct {
	Users  []*domain.User      `json:"users"`
	Admins []*domain.AdminUser `json:"admins"`
}

// SeedTickets returns the demo ticket set shipped with the service.
func SeedTickets() ([]*domain.Ticket, error) {
	raw, err := seedFS.ReadFile("seed/tickets.json")
	if err != nil {
		return nil, fmt.Errorf("read ticket seed: %w", err)
	}
	var tickets []*domain.Ticket
	if err := json.Unmarshal(raw, &tickets); err != nil {
		return nil, fmt.Errorf("decode ticket seed: %w", err)
	}
	for _, t := range tickets {
		normalize(t)
	}
	return tickets, nil
}

// SeedRegistry returns the demo users and admin set.
func SeedRegistry() ([]*domain.User, []*domain.AdminUser, error) {
	raw, err := seedFS.ReadFile("seed/registry.json")
	if err != nil {
		return nil, nil, fmt.Errorf("read registry seed: %w", err)
	}
	var s registrySeed
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, nil, fmt.Errorf("decode registry seed: %w", err)
	}
	return s.Users, s.Admins, nil
}

// normalize replaces nil sub-collections so JSON output always carries
// arrays.
func normalize(t *domain.Ticket) {
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
	if t.AssignedTo == "" {
		t.AssignedTo = domain.UnassignedName
	}
}
