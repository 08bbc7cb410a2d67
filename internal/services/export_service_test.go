package services

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/fintera-cashflow/internal/date"
	"github.com/sjperalta/fintera-cashflow/internal/models"
	"github.com/sjperalta/fintera-cashflow/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newExportFixture(t *testing.T) (*fixture, *ExportService, *storage.LocalStorage) {
	t.Helper()
	f := newFixture(t)
	f.pending(models.OperationRevenue, 500, "2025-03-20")
	f.pending(models.OperationExpense, 300, "2025-04-10")

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return f, NewExportService(f.cashflow, store, "BRL"), store
}

func TestExportForecastCSV(t *testing.T) {
	_, svc, store := newExportFixture(t)

	result, err := svc.Export(context.Background(), actor, ReportForecast, FormatCSV, date.YearMonth{}, date.YearMonth{})
	require.NoError(t, err)

	assert.Equal(t, "forecast_2025-03-15.csv", result.Filename)
	assert.Equal(t, "text/csv", result.ContentType)

	lines := strings.Split(strings.TrimSpace(string(result.Data)), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[2], "2025-04,"))
	assert.True(t, strings.HasSuffix(lines[2], ",1200.00"))
	assert.True(t, strings.HasSuffix(lines[3], ",1500.00"))

	require.NotEmpty(t, result.ArchivePath)
	assert.Contains(t, result.ArchivePath, "org-1")
	assert.True(t, store.Exists(result.ArchivePath))
}

func TestExportPivotXLSX(t *testing.T) {
	_, svc, _ := newExportFixture(t)

	result, err := svc.Export(context.Background(), actor, ReportPivot, FormatXLSX,
		date.NewYearMonth(2025, 3), date.NewYearMonth(2025, 4))
	require.NoError(t, err)

	book, err := excelize.OpenReader(bytes.NewReader(result.Data))
	require.NoError(t, err)
	defer book.Close()

	header, err := book.GetCellValue("Relatório", "B3")
	require.NoError(t, err)
	assert.Equal(t, "2025-03", header)

	label, err := book.GetCellValue("Relatório", "A4")
	require.NoError(t, err)
	assert.Equal(t, NoCostCenterLabel, label)

	total, err := book.GetCellValue("Relatório", "A5")
	require.NoError(t, err)
	assert.Equal(t, "Total", total)
}

func TestExportPDF(t *testing.T) {
	_, svc, _ := newExportFixture(t)

	result, err := svc.Export(context.Background(), actor, ReportForecast, FormatPDF, date.YearMonth{}, date.YearMonth{})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, bytes.HasPrefix(result.Data, []byte("%PDF")))
}

func TestExportRejectsUnknownInput(t *testing.T) {
	_, svc, _ := newExportFixture(t)

	_, err := svc.Export(context.Background(), actor, ReportForecast, "docx", date.YearMonth{}, date.YearMonth{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Export(context.Background(), actor, "ledger", FormatCSV, date.YearMonth{}, date.YearMonth{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestExportWithoutStorage(t *testing.T) {
	f := newFixture(t)
	svc := NewExportService(f.cashflow, nil, "BRL")

	result, err := svc.Export(context.Background(), actor, ReportPivot, FormatCSV, date.YearMonth{}, date.YearMonth{})
	require.NoError(t, err)
	assert.Empty(t, result.ArchivePath)
}

func TestMoneyFormatter(t *testing.T) {
	brl := newMoneyFormatter("BRL")
	assert.Contains(t, brl.Format(decimal.RequireFromString("1234.56")), "1.234,56")
	assert.Contains(t, brl.Format(decimal.RequireFromString("-10.5")), "10,50")

	fallback := newMoneyFormatter("ZZZ")
	assert.Equal(t, "BRL", fallback.code)
	assert.Equal(t, int32(2), fallback.fraction)
}

func TestArchiveRoundTrip(t *testing.T) {
	_, svc, store := newExportFixture(t)

	result, err := svc.Export(context.Background(), actor, ReportForecast, FormatCSV, date.YearMonth{}, date.YearMonth{})
	require.NoError(t, err)

	archive, err := svc.OpenArchive(actor, result.ArchivePath)
	require.NoError(t, err)
	content, err := io.ReadAll(archive.File)
	require.NoError(t, archive.File.Close())
	require.NoError(t, err)
	assert.Equal(t, result.Data, content)
	assert.EqualValues(t, len(result.Data), archive.Size)
	assert.Equal(t, "forecast_2025-03-15.csv", archive.Filename)
	assert.Equal(t, "text/csv", archive.ContentType)

	// Other organizations cannot see the archive
	other := Actor{OrganizationID: 2, UserID: 7}
	_, err = svc.OpenArchive(other, result.ArchivePath)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.DeleteArchive(other, result.ArchivePath), ErrNotFound)

	require.NoError(t, svc.DeleteArchive(actor, result.ArchivePath))
	assert.False(t, store.Exists(result.ArchivePath))
	_, err = svc.OpenArchive(actor, result.ArchivePath)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestArchiveRejectsEscapingPaths(t *testing.T) {
	_, svc, _ := newExportFixture(t)

	for _, path := range []string{"", "reports/org-1/../org-2/x.csv", "../reports/org-1/x.csv", "reports/org-10/x.csv"} {
		_, err := svc.OpenArchive(actor, path)
		assert.ErrorIs(t, err, ErrNotFound, path)
	}
}
