package backend

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/lorrc/sap-helpdesk/internal/core/domain"
	apperrors "github.com/lorrc/sap-helpdesk/internal/core/errors"
	"github.com/lorrc/sap-helpdesk/internal/core/ports"
)

const listPageSize = 100

// TicketRepository stores tickets in the remote backend. Ids, dates and
// audit logs are owned by the backend; Update is read-modify-write over
// HTTP and is not atomic across concurrent writers.
type TicketRepository struct {
	client *Client
}

var (
	_ ports.TicketRepository = (*TicketRepository)(nil)
	_ ports.Pinger           = (*TicketRepository)(nil)
)

func NewTicketRepository(client *Client) *TicketRepository {
	return &TicketRepository{client: client}
}

func (r *TicketRepository) Ping(ctx context.Context) error {
	var page ticketListDTO
	return r.client.get(ctx, "/tickets", url.Values{"page": {"1"}, "size": {"1"}}, &page)
}

// List pages through the backend collection.
func (r *TicketRepository) List(ctx context.Context) ([]*domain.Ticket, error) {
	tickets := make([]*domain.Ticket, 0)
	for page := 1; ; page++ {
		var resp ticketListDTO
		q := url.Values{
			"page": {strconv.Itoa(page)},
			"size": {strconv.Itoa(listPageSize)},
		}
		if err := r.client.get(ctx, "/tickets", q, &resp); err != nil {
			return nil, err
		}
		for _, item := range resp.Items {
			t, err := ticketFromDTO(item)
			if err != nil {
				return nil, err
			}
			tickets = append(tickets, t)
		}
		if len(resp.Items) == 0 || page >= resp.Pages {
			return tickets, nil
		}
	}
}

func (r *TicketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	var resp ticketDTO
	if err := r.client.get(ctx, ticketPath(id), nil, &resp); err != nil {
		return nil, notFound(err)
	}
	return ticketFromDTO(resp)
}

// Create submits t; the backend's answer is the stored ticket.
func (r *TicketRepository) Create(ctx context.Context, t *domain.Ticket) (*domain.Ticket, error) {
	assignee, err := r.resolveAssignee(ctx, t)
	if err != nil {
		return nil, err
	}
	var resp ticketDTO
	if err := r.client.post(ctx, "/tickets", nil, ticketToCreateDTO(t, assignee), &resp); err != nil {
		return nil, err
	}
	return ticketFromDTO(resp)
}

// Update fetches the ticket, runs fn on it and sends the difference: one
// PUT for field changes and one POST per new comment.
func (r *TicketRepository) Update(ctx context.Context, id int64, fn func(*domain.Ticket) error) (*domain.Ticket, error) {
	prev, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	next := prev.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}

	changes, err := diffToUpdateDTO(prev, next)
	if err != nil {
		return nil, err
	}
	if next.AssignedTo != prev.AssignedTo || next.AssignedToEmail != prev.AssignedToEmail {
		assignee, err := r.resolveAssignee(ctx, next)
		if err != nil {
			return nil, err
		}
		changes["assigned_to"] = assignee
	}

	newComments := []domain.Comment{}
	if len(next.Comments) > len(prev.Comments) {
		newComments = next.Comments[len(prev.Comments):]
	}
	if len(changes) == 0 && len(newComments) == 0 {
		return next, nil
	}

	if len(changes) > 0 {
		if err := r.client.put(ctx, ticketPath(id), changes, nil); err != nil {
			return nil, notFound(err)
		}
	}
	for _, c := range newComments {
		body := createCommentDTO{Content: c.Message}
		if err := r.client.post(ctx, ticketPath(id)+"/comments", nil, body, nil); err != nil {
			return nil, notFound(err)
		}
	}
	return r.GetByID(ctx, id)
}

func (r *TicketRepository) Delete(ctx context.Context, id int64) error {
	return notFound(r.client.delete(ctx, ticketPath(id)))
}

// resolveAssignee finds the backend user id for the ticket's assignee,
// preferring the email when one is known. Unassigned resolves to nil.
func (r *TicketRepository) resolveAssignee(ctx context.Context, t *domain.Ticket) (*int64, error) {
	name := strings.TrimSpace(t.AssignedTo)
	if (name == "" || name == domain.UnassignedName) && t.AssignedToEmail == "" {
		return nil, nil
	}

	var users []userBriefDTO
	if err := r.client.get(ctx, "/users/assignable", nil, &users); err != nil {
		return nil, err
	}
	if t.AssignedToEmail != "" {
		for _, u := range users {
			if strings.EqualFold(u.Email, t.AssignedToEmail) {
				return &u.ID, nil
			}
		}
	}
	for _, u := range users {
		if strings.EqualFold(strings.TrimSpace(u.Name), name) {
			return &u.ID, nil
		}
	}
	return nil, fmt.Errorf("assignee %q is not a backend user: %w", name, apperrors.ErrInvalidInput)
}

func ticketPath(id int64) string {
	return "/tickets/" + strconv.FormatInt(id, 10)
}

// notFound narrows a backend 404 to ErrTicketNotFound.
func notFound(err error) error {
	if err != nil && errors.Is(err, apperrors.ErrNotFound) {
		return apperrors.ErrTicketNotFound
	}
	return err
}
