package domain

import "time"

// EmailRecord is an email seen by the external ingestion pipeline.
type EmailRecord struct {
	ID               int64     `json:"id"`
	Subject          string    `json:"subject"`
	FromAddress      string    `json:"fromAddress"`
	ReceivedAt       time.Time `json:"receivedAt"`
	IsSAPRelated     bool      `json:"isSapRelated"`
	DetectedCategory Module    `json:"detectedCategory,omitempty"`
	TicketCreatedID  *int64    `json:"ticketCreatedId"`
	Processed        bool      `json:"processed"`
}

type EmailStats struct {
	TotalEmails    int        `json:"totalEmails"`
	SAPRelated     int        `json:"sapRelated"`
	TicketsCreated int        `json:"ticketsCreated"`
	Unprocessed    int        `json:"unprocessed"`
	LastFetchAt    *time.Time `json:"lastFetchAt"`
}

// FetchRequest asks the pipeline to pull mail from the last DaysBack days.
type FetchRequest struct {
	DaysBack  int `json:"daysBack"`
	MaxEmails int `json:"maxEmails"`
}

type FetchResult struct {
	Fetched        int      `json:"fetched"`
	SAPRelated     int      `json:"sapRelated"`
	TicketsCreated int      `json:"ticketsCreated"`
	Errors         []string `json:"errors"`
}

// ReprocessResult reports the outcome of re-running classification on one email.
type ReprocessResult struct {
	EmailID         int64  `json:"emailId"`
	IsSAPRelated    bool   `json:"isSapRelated"`
	TicketCreatedID *int64 `json:"ticketCreatedId"`
	Message         string `json:"message,omitempty"`
}
