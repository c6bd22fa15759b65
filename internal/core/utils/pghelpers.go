package utils

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lorrc/sap-helpdesk/internal/core/domain"
)

// ToText converts a string to a pgtype.Text. An empty string is stored as
// NULL.
func ToText(s string) pgtype.Text {
	return pgtype.Text{
		String: s,
		Valid:  s != "",
	}
}

// FromText converts a pgtype.Text to a string. NULL becomes "".
func FromText(t pgtype.Text) string {
	if !t.Valid {
		return ""
	}
	return t.String
}

// ToDate converts a domain.Date; the zero date is stored as NULL.
func ToDate(d domain.Date) pgtype.Date {
	if d.IsZero() {
		return pgtype.Date{Valid: false}
	}
	return pgtype.Date{Time: d.Time(), Valid: true}
}

// FromDate converts a pgtype.Date. NULL becomes the zero date.
func FromDate(d pgtype.Date) domain.Date {
	if !d.Valid {
		return domain.Date{}
	}
	return domain.DateOf(d.Time)
}

// ToTimestamptz converts a time; the zero time is stored as NULL.
func ToTimestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: !t.IsZero()}
}

// FromTimestamptz converts a pgtype.Timestamptz. NULL becomes the zero time.
func FromTimestamptz(t pgtype.Timestamptz) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time.UTC()
}
