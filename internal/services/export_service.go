package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
	"github.com/sjperalta/fintera-cashflow/internal/date"
	"github.com/sjperalta/fintera-cashflow/internal/storage"
	"github.com/sjperalta/fintera-cashflow/pkg/logger"
	"github.com/xuri/excelize/v2"
)

// Export reports and formats
const (
	ReportForecast = "forecast"
	ReportPivot    = "pivot"

	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatPDF  = "pdf"
)

var contentTypes = map[string]string{
	FormatCSV:  "text/csv",
	FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	FormatPDF:  "application/pdf",
}

// ExportResult is a rendered report
type ExportResult struct {
	Data        []byte
	Filename    string
	ContentType string
	ArchivePath string
}

// table is the format independent shape every report is rendered from
type table struct {
	title  string
	header []string
	labels []string
	values [][]decimal.Decimal
	footer []string
}

type ExportService struct {
	cashflow *CashflowService
	storage  *storage.LocalStorage
	money    moneyFormatter
}

// NewExportService creates the export service. storage may be nil to skip archiving.
func NewExportService(cashflowSvc *CashflowService, storage *storage.LocalStorage, currency string) *ExportService {
	return &ExportService{cashflow: cashflowSvc, storage: storage, money: newMoneyFormatter(currency)}
}

// Export renders a forecast or pivot report and archives a copy under the organization
func (s *ExportService) Export(ctx context.Context, actor Actor, report, format string, from, to date.YearMonth) (*ExportResult, error) {
	contentType, ok := contentTypes[format]
	if !ok {
		return nil, fmt.Errorf("%w: formato desconhecido %q", ErrInvalidInput, format)
	}

	var t *table
	switch report {
	case ReportForecast:
		r, err := s.cashflow.Forecast(ctx, actor.OrganizationID, from, to)
		if err != nil {
			return nil, err
		}
		t = forecastTable(r)
	case ReportPivot:
		r, err := s.cashflow.Pivot(ctx, actor.OrganizationID, from, to)
		if err != nil {
			return nil, err
		}
		t = pivotTable(r)
	default:
		return nil, fmt.Errorf("%w: relatório desconhecido %q", ErrInvalidInput, report)
	}

	var data []byte
	var err error
	switch format {
	case FormatCSV:
		data, err = s.renderCSV(t)
	case FormatXLSX:
		data, err = s.renderXLSX(t)
	case FormatPDF:
		data, err = s.renderPDF(t)
	}
	if err != nil {
		return nil, fmt.Errorf("render %s %s: %w", report, format, err)
	}

	result := &ExportResult{
		Data:        data,
		Filename:    fmt.Sprintf("%s_%s.%s", report, s.cashflow.Today(), format),
		ContentType: contentType,
	}
	if s.storage != nil {
		path, err := s.storage.SaveReport(actor.OrganizationID, result.Filename, data)
		if err != nil {
			logger.Warn("[Export] failed to archive report", slog.String("file", result.Filename), slog.String("error", err.Error()))
		} else {
			result.ArchivePath = path
		}
	}
	return result, nil
}

// ArchivedReport is an open archived export. The caller closes File.
type ArchivedReport struct {
	File        *os.File
	Size        int64
	Filename    string
	ContentType string
}

func (s *ExportService) archivePath(actor Actor, path string) (string, error) {
	if s.storage == nil || path == "" || !storage.OwnsReport(actor.OrganizationID, path) {
		return "", ErrNotFound
	}
	path = filepath.Clean(path)
	if !s.storage.Exists(path) {
		return "", ErrNotFound
	}
	return path, nil
}

// OpenArchive opens a report archived by Export. Paths of other organizations are not found.
func (s *ExportService) OpenArchive(actor Actor, path string) (*ArchivedReport, error) {
	path, err := s.archivePath(actor, path)
	if err != nil {
		return nil, err
	}
	size, err := s.storage.GetSize(path)
	if err != nil {
		return nil, fmt.Errorf("stat archive: %w", err)
	}
	file, err := s.storage.Download(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	name := filepath.Base(path)
	if _, rest, ok := strings.Cut(name, "_"); ok {
		name = rest
	}
	contentType, ok := contentTypes[strings.TrimPrefix(filepath.Ext(name), ".")]
	if !ok {
		contentType = "application/octet-stream"
	}
	return &ArchivedReport{File: file, Size: size, Filename: name, ContentType: contentType}, nil
}

// DeleteArchive removes a report archived by Export
func (s *ExportService) DeleteArchive(actor Actor, path string) error {
	path, err := s.archivePath(actor, path)
	if err != nil {
		return err
	}
	if err := s.storage.Delete(path); err != nil {
		return fmt.Errorf("delete archive: %w", err)
	}
	logger.Info("[Export] archive deleted", slog.String("path", path), slog.Uint64("user_id", uint64(actor.UserID)))
	return nil
}

func forecastTable(r *ForecastReport) *table {
	t := &table{
		title:  fmt.Sprintf("Fluxo de caixa projetado (saldo inicial %s)", r.StartBalance.StringFixed(2)),
		header: []string{"Mês", "Entradas previstas", "Saídas previstas", "Entradas realizadas", "Saídas realizadas", "Saldo projetado"},
	}
	for _, row := range r.Rows {
		t.labels = append(t.labels, row.Month)
		t.values = append(t.values, []decimal.Decimal{row.PendingIn, row.PendingOut, row.RealizedIn, row.RealizedOut, row.RunningBalance})
	}
	if r.Excluded > 0 {
		t.footer = append(t.footer, fmt.Sprintf("%d lançamento(s) sem data válida não incluídos", r.Excluded))
	}
	return t
}

func pivotTable(r *PivotReport) *table {
	t := &table{
		title:  "Centros de custo por mês",
		header: append(append([]string{"Centro de custo"}, r.Months...), "Total"),
	}
	for _, row := range r.Rows {
		t.labels = append(t.labels, row.Label)
		t.values = append(t.values, append(append([]decimal.Decimal{}, row.Cells...), row.Total))
	}
	t.labels = append(t.labels, "Total")
	t.values = append(t.values, append(append([]decimal.Decimal{}, r.ColumnTotals...), r.GrandTotal))

	if r.Truncated {
		t.footer = append(t.footer, fmt.Sprintf("Intervalo limitado a %d meses", len(r.Months)))
	}
	if r.MissingReferences > 0 {
		t.footer = append(t.footer, fmt.Sprintf("%d lançamento(s) com centro de custo inexistente", r.MissingReferences))
	}
	return t
}

func (s *ExportService) renderCSV(t *table) ([]byte, error) {
	buf := new(bytes.Buffer)
	writer := csv.NewWriter(buf)

	_ = writer.Write([]string{t.title})
	_ = writer.Write(t.header)
	for i, label := range t.labels {
		record := []string{label}
		for _, v := range t.values[i] {
			record = append(record, v.StringFixed(2))
		}
		_ = writer.Write(record)
	}
	for _, note := range t.footer {
		_ = writer.Write([]string{note})
	}

	writer.Flush()
	return buf.Bytes(), writer.Error()
}

func (s *ExportService) renderXLSX(t *table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Relatório"
	_ = f.SetSheetName("Sheet1", sheet)

	titleStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	numberStyle, _ := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00

	_ = f.SetCellValue(sheet, "A1", t.title)
	_ = f.SetCellStyle(sheet, "A1", "A1", titleStyle)

	for col, h := range t.header {
		cell, err := excelize.CoordinatesToCellName(col+1, 3)
		if err != nil {
			return nil, err
		}
		_ = f.SetCellValue(sheet, cell, h)
		_ = f.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	for i, label := range t.labels {
		row := i + 4
		cell, _ := excelize.CoordinatesToCellName(1, row)
		_ = f.SetCellValue(sheet, cell, label)
		for j, v := range t.values[i] {
			cell, err := excelize.CoordinatesToCellName(j+2, row)
			if err != nil {
				return nil, err
			}
			_ = f.SetCellValue(sheet, cell, v.InexactFloat64())
			_ = f.SetCellStyle(sheet, cell, cell, numberStyle)
		}
	}

	for i, note := range t.footer {
		cell, _ := excelize.CoordinatesToCellName(1, len(t.labels)+5+i)
		_ = f.SetCellValue(sheet, cell, note)
	}
	_ = f.SetColWidth(sheet, "A", "A", 28)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *ExportService) renderPDF(t *table) ([]byte, error) {
	orientation := "P"
	if len(t.header) > 6 {
		orientation = "L"
	}
	pdf := gofpdf.New(orientation, "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(40, 10, tr(t.title))
	pdf.Ln(12)

	pageWidth, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	usable := pageWidth - left - right
	labelWidth := usable * 0.22
	colWidth := (usable - labelWidth) / float64(max(len(t.header)-1, 1))

	fontSize := 9.0
	if len(t.header) > 8 {
		fontSize = 6
	}

	pdf.SetFont("Arial", "B", fontSize)
	pdf.SetFillColor(224, 224, 224)
	for i, h := range t.header {
		w := colWidth
		if i == 0 {
			w = labelWidth
		}
		pdf.CellFormat(w, 7, tr(h), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", fontSize)
	for i, label := range t.labels {
		pdf.CellFormat(labelWidth, 6, tr(label), "1", 0, "L", false, 0, "")
		for _, v := range t.values[i] {
			pdf.CellFormat(colWidth, 6, tr(s.money.Format(v)), "1", 0, "R", false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "I", 8)
	for _, note := range t.footer {
		pdf.Cell(40, 5, tr(note))
		pdf.Ln(5)
	}

	buf := new(bytes.Buffer)
	if err := pdf.Output(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// moneyFormatter displays decimal amounts in the configured currency
type moneyFormatter struct {
	code     string
	fraction int32
}

// newMoneyFormatter falls back to BRL for unknown currency codes
func newMoneyFormatter(code string) moneyFormatter {
	cur := money.GetCurrency(code)
	if cur == nil {
		code = "BRL"
		cur = money.GetCurrency(code)
	}
	return moneyFormatter{code: code, fraction: int32(cur.Fraction)}
}

func (f moneyFormatter) Format(amount decimal.Decimal) string {
	minor := amount.Shift(f.fraction).Round(0).IntPart()
	return money.New(minor, f.code).Display()
}
