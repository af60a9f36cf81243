package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/mess-fee-api/internal/dto"
	"github.com/noah-isme/mess-fee-api/internal/models"
	appErrors "github.com/noah-isme/mess-fee-api/pkg/errors"
	"github.com/noah-isme/mess-fee-api/pkg/export"
	"github.com/noah-isme/mess-fee-api/pkg/storage"
)

type reportPaymentRepository interface {
	List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentDetail, int, error)
	SummaryForMonth(ctx context.Context, month time.Time) (*models.MonthlySummary, error)
}

// ReportService generates monthly payment ledger exports in CSV or PDF,
// stores them on disk and hands out signed download tokens.
type ReportService struct {
	payments reportPaymentRepository
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	store    *storage.LocalStorage
	signer   *storage.SignedURLSigner
	logger   *zap.Logger
	enabled  bool
}

// NewReportService constructs the report service.
func NewReportService(payments reportPaymentRepository, store *storage.LocalStorage, signer *storage.SignedURLSigner, logger *zap.Logger, enabled bool) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		payments: payments,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		store:    store,
		signer:   signer,
		logger:   logger,
		enabled:  enabled,
	}
}

// Enabled reports whether report endpoints should be exposed.
func (s *ReportService) Enabled() bool {
	return s != nil && s.enabled && s.store != nil && s.signer != nil
}

// GenerateLedger builds the payment ledger for the given month and format.
func (s *ReportService) GenerateLedger(ctx context.Context, month time.Time, format string) (*dto.LedgerReport, error) {
	if !s.Enabled() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "reports are disabled")
	}
	format = strings.ToLower(format)
	if format != "csv" && format != "pdf" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	if month.IsZero() {
		return nil, appErrors.Clone(appErrors.ErrInvalidDate, "report month is required")
	}

	payments, err := s.collectMonth(ctx, month)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payments")
	}
	summary, err := s.payments.SummaryForMonth(ctx, month)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to summarise payments")
	}

	dataset := export.Dataset{
		Headers: []string{"Roll No", "Student", "Amount", "Monthly Fee", "Absent Days", "Period", "Method", "Recorded At"},
		Rows:    make([]map[string]string, 0, len(payments)+1),
	}
	for _, p := range payments {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Roll No":     p.RollNo,
			"Student":     p.StudentName,
			"Amount":      p.Amount.StringFixed(2),
			"Monthly Fee": p.MonthlyFee.StringFixed(2),
			"Absent Days": fmt.Sprintf("%d", p.AbsentDays),
			"Period":      p.Period.Format("02 Jan 2006"),
			"Method":      p.Method,
			"Recorded At": p.CreatedAt.Format("02 Jan 2006 15:04"),
		})
	}
	dataset.Rows = append(dataset.Rows, map[string]string{
		"Roll No": "TOTAL",
		"Amount":  summary.TotalCollected.StringFixed(2),
	})

	title := fmt.Sprintf("Payment Ledger %s", month.Format("January 2006"))
	var payload []byte
	switch format {
	case "csv":
		payload, err = s.csv.Render(dataset)
	case "pdf":
		payload, err = s.pdf.Render(dataset, title)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}

	reportID := uuid.NewString()
	fileName := fmt.Sprintf("ledger_%s_%s.%s", month.Format("2006_01"), reportID[:8], format)
	if _, err := s.store.Save(fileName, payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store report")
	}

	token, expiresAt, err := s.signer.Generate(reportID, fileName)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
	}

	s.logger.Info("ledger report generated",
		zap.String("report_id", reportID),
		zap.String("format", format),
		zap.Int("rows", len(payments)))

	return &dto.LedgerReport{
		ReportID:    reportID,
		FileName:    fileName,
		Format:      format,
		RowCount:    len(payments),
		DownloadURL: fmt.Sprintf("/reports/download/%s", token),
		ExpiresAt:   expiresAt,
	}, nil
}

// collectMonth pages through the repository until every payment of the month
// is loaded, so the ledger never truncates while its TOTAL row reports the
// full-month sum.
func (s *ReportService) collectMonth(ctx context.Context, month time.Time) ([]models.PaymentDetail, error) {
	const pageSize = 100

	var payments []models.PaymentDetail
	for page := 1; ; page++ {
		batch, total, err := s.payments.List(ctx, models.PaymentFilter{Month: &month, Page: page, PageSize: pageSize})
		if err != nil {
			return nil, err
		}
		payments = append(payments, batch...)
		if len(batch) == 0 || len(payments) >= total {
			return payments, nil
		}
	}
}

// OpenDownload validates a download token and returns the stored bytes with
// the original file name.
func (s *ReportService) OpenDownload(token string) ([]byte, string, error) {
	if !s.Enabled() {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "reports are disabled")
	}
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download token")
	}
	data, err := s.store.ReadAll(relPath)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "report file not found")
	}
	return data, relPath, nil
}

// Cleanup removes stored reports older than the TTL.
func (s *ReportService) Cleanup(ttl time.Duration) (int, error) {
	if !s.Enabled() {
		return 0, nil
	}
	deleted, err := s.store.CleanupOlderThan(ttl)
	if err != nil {
		return 0, err
	}
	if len(deleted) > 0 {
		s.logger.Info("expired reports removed", zap.Int("count", len(deleted)))
	}
	return len(deleted), nil
}
