package dto

import "time"

// LedgerReport describes a generated payment ledger export.
type LedgerReport struct {
	ReportID    string    `json:"report_id"`
	FileName    string    `json:"file_name"`
	Format      string    `json:"format"`
	RowCount    int       `json:"row_count"`
	DownloadURL string    `json:"download_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}
