package backend

import (
	"context"
	"net/url"
	"strconv"

	"github.com/lorrc/sap-helpdesk/internal/core/domain"
	"github.com/lorrc/sap-helpdesk/internal/core/ports"
)

// EmailGateway proxies the backend's email-ingestion endpoints.
type EmailGateway struct {
	client *Client
}

var _ ports.EmailGateway = (*EmailGateway)(nil)

func NewEmailGateway(client *Client) *EmailGateway {
	return &EmailGateway{client: client}
}

// TriggerFetch starts a mailbox pull. It is a POST and never retried.
func (g *EmailGateway) TriggerFetch(ctx context.Context, req domain.FetchRequest) (*domain.FetchResult, error) {
	q := url.Values{
		"days_back":  {strconv.Itoa(req.DaysBack)},
		"max_emails": {strconv.Itoa(req.MaxEmails)},
	}
	var resp fetchResultDTO
	if err := g.client.post(ctx, "/emails/fetch", q, nil, &resp); err != nil {
		return nil, err
	}
	errs := resp.Errors
	if errs == nil {
		errs = []string{}
	}
	return &domain.FetchResult{
		Fetched:        resp.Fetched,
		SAPRelated:     resp.SAPRelated,
		TicketsCreated: resp.TicketsCreated,
		Errors:         errs,
	}, nil
}

func (g *EmailGateway) Stats(ctx context.Context) (*domain.EmailStats, error) {
	var resp emailStatsDTO
	if err := g.client.get(ctx, "/emails/stats", nil, &resp); err != nil {
		return nil, err
	}
	return statsFromDTO(resp)
}

func (g *EmailGateway) Recent(ctx context.Context, limit int) ([]*domain.EmailRecord, error) {
	return g.list(ctx, "/emails/recent", limitQuery(limit))
}

func (g *EmailGateway) Unprocessed(ctx context.Context, limit int) ([]*domain.EmailRecord, error) {
	return g.list(ctx, "/emails/unprocessed", limitQuery(limit))
}

func (g *EmailGateway) ByCategory(ctx context.Context, module domain.Module, skip, limit int) ([]*domain.EmailRecord, error) {
	path := "/emails/by-category/" + url.PathEscape(moduleToRemote(module))
	return g.list(ctx, path, url.Values{
		"skip":  {strconv.Itoa(skip)},
		"limit": {strconv.Itoa(limit)},
	})
}

func (g *EmailGateway) Reprocess(ctx context.Context, id int64) (*domain.ReprocessResult, error) {
	var resp reprocessDTO
	path := "/emails/" + strconv.FormatInt(id, 10) + "/reprocess"
	if err := g.client.post(ctx, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	if resp.EmailID == 0 {
		resp.EmailID = id
	}
	return &domain.ReprocessResult{
		EmailID:         resp.EmailID,
		IsSAPRelated:    resp.IsSAPRelated,
		TicketCreatedID: resp.TicketCreatedID,
		Message:         resp.Message,
	}, nil
}

func limitQuery(limit int) url.Values {
	return url.Values{"limit": {strconv.Itoa(limit)}}
}

func (g *EmailGateway) list(ctx context.Context, path string, q url.Values) ([]*domain.EmailRecord, error) {
	var resp []emailDTO
	if err := g.client.get(ctx, path, q, &resp); err != nil {
		return nil, err
	}
	out := make([]*domain.EmailRecord, 0, len(resp))
	for _, d := range resp {
		rec, err := emailFromDTO(d)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
