package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/mess-fee-api/internal/models"
	"github.com/noah-isme/mess-fee-api/pkg/storage"
)

type mockReportPaymentRepo struct {
	payments  []models.PaymentDetail
	listCalls int
}

func (m *mockReportPaymentRepo) List(_ context.Context, filter models.PaymentFilter) ([]models.PaymentDetail, int, error) {
	m.listCalls++

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}

	offset := (page - 1) * size
	if offset >= len(m.payments) {
		return nil, len(m.payments), nil
	}
	end := offset + size
	if end > len(m.payments) {
		end = len(m.payments)
	}
	return m.payments[offset:end], len(m.payments), nil
}

func (m *mockReportPaymentRepo) SummaryForMonth(_ context.Context, month time.Time) (*models.MonthlySummary, error) {
	total := decimal.Zero
	for _, p := range m.payments {
		total = total.Add(p.Amount)
	}
	return &models.MonthlySummary{Month: month, TotalCollected: total, PaymentCount: len(m.payments)}, nil
}

func newLedgerFixture(t *testing.T, count int) (*ReportService, *mockReportPaymentRepo) {
	t.Helper()

	payments := make([]models.PaymentDetail, 0, count)
	for i := 0; i < count; i++ {
		payments = append(payments, models.PaymentDetail{
			Payment: models.Payment{
				ID:         fmt.Sprintf("p%d", i),
				Amount:     decimal.NewFromInt(100),
				MonthlyFee: decimal.NewFromInt(100),
				Period:     time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC),
				Method:     "cash",
				CreatedAt:  time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Minute),
			},
			StudentName: fmt.Sprintf("Student %d", i),
			RollNo:      fmt.Sprintf("R%03d", i),
		})
	}
	repo := &mockReportPaymentRepo{payments: payments}

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)

	return NewReportService(repo, store, signer, zap.NewNop(), true), repo
}

func TestReportServiceLedgerIncludesEveryPayment(t *testing.T) {
	svc, repo := newLedgerFixture(t, 150)
	month := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

	report, err := svc.GenerateLedger(context.Background(), month, "csv")
	require.NoError(t, err)

	assert.Equal(t, 150, report.RowCount)
	assert.GreaterOrEqual(t, repo.listCalls, 2)

	data, fileName, err := svc.OpenDownload(strings.TrimPrefix(report.DownloadURL, "/reports/download/"))
	require.NoError(t, err)
	assert.Equal(t, report.FileName, fileName)

	content := string(data)
	// headers + 150 payment rows + TOTAL row, each newline-terminated
	assert.Equal(t, 152, strings.Count(content, "\n"))
	assert.Contains(t, content, "R149")
	assert.Contains(t, content, "TOTAL,,15000.00")
}

func TestReportServiceLedgerRejectsUnknownFormat(t *testing.T) {
	svc, _ := newLedgerFixture(t, 1)
	month := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

	_, err := svc.GenerateLedger(context.Background(), month, "xlsx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "format must be csv or pdf")
}
