package models

import "time"

type RunStatus string

const (
	RunStatusSuccess RunStatus = "SUCCESS"
	RunStatusFailed  RunStatus = "FAILED"
)

// RunLogEntry is the outcome of processing one company in one run.
type RunLogEntry struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	CompanyCode      string    `gorm:"index" json:"company_code"`
	PeriodFrom       string    `json:"period_from"`
	PeriodTo         string    `json:"period_to"`
	Status           RunStatus `json:"status"`
	InvoiceCount     int       `json:"invoice_count"`
	Error            string    `json:"error"`
	RequestSnapshot  string    `json:"request_snapshot,omitempty"`
	ResponseSnapshot string    `json:"response_snapshot,omitempty"`
	ProcessedAt      time.Time `json:"processed_at"`
	CreatedAt        time.Time `json:"-"`
}
