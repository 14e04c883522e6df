// Package export renders weekly reports as spreadsheets.
package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/distrib/backend/internal/domain/reporting"
)

const (
	detailSheet  = "Report"
	summarySheet = "Summary"
)

var detailHeader = []any{
	"Product", "Carry over", "New stock", "Already reported", "Received",
	"Sold", "Damaged", "Remaining", "Unit price", "Revenue",
}

// ReportWorkbook writes a report as an xlsx workbook with a detail sheet and
// a summary sheet
type ReportWorkbook struct{}

// NewReportWorkbook creates the xlsx exporter
func NewReportWorkbook() *ReportWorkbook {
	return &ReportWorkbook{}
}

func (ReportWorkbook) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (ReportWorkbook) Extension() string {
	return "xlsx"
}

// Export renders report into workbook bytes
func (w ReportWorkbook) Export(report *reporting.WeeklyReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", detailSheet); err != nil {
		return nil, err
	}
	if err := writeDetails(f, report); err != nil {
		return nil, fmt.Errorf("write details: %w", err)
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, err
	}
	if err := writeSummary(f, report); err != nil {
		return nil, fmt.Errorf("write summary: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeDetails(f *excelize.File, report *reporting.WeeklyReport) error {
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(detailSheet, "A1", &detailHeader); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(detailHeader), 1)
	if err := f.SetCellStyle(detailSheet, "A1", last, bold); err != nil {
		return err
	}

	for i, d := range report.Details {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		unitPrice, _ := d.UnitPrice.Float64()
		revenue, _ := d.Revenue.Float64()
		row := []any{
			d.ProductName, d.CarryOver, d.NewStock, d.AlreadyReported, d.QuantityReceived,
			d.QuantitySold, d.QuantityDamaged, d.RemainingStock, unitPrice, revenue,
		}
		if err := f.SetSheetRow(detailSheet, cell, &row); err != nil {
			return err
		}
	}

	totalRow := len(report.Details) + 2
	cell, _ := excelize.CoordinatesToCellName(1, totalRow)
	revenue, _ := report.TotalRevenue.Float64()
	totals := []any{"Total", nil, nil, nil, nil, report.TotalSold, report.TotalDamaged, nil, nil, revenue}
	if err := f.SetSheetRow(detailSheet, cell, &totals); err != nil {
		return err
	}
	end, _ := excelize.CoordinatesToCellName(len(detailHeader), totalRow)
	if err := f.SetCellStyle(detailSheet, cell, end, bold); err != nil {
		return err
	}
	return f.SetColWidth(detailSheet, "A", "A", 32)
}

func writeSummary(f *excelize.File, report *reporting.WeeklyReport) error {
	revenue, _ := report.TotalRevenue.Float64()
	rows := [][]any{
		{"Report", report.ID.String()},
		{"Distributor", report.DistributorID.String()},
		{"Cycle", report.CycleAnchor.Format("2006-01-02")},
		{"Status", string(report.Status)},
		{"Total sold", report.TotalSold},
		{"Total damaged", report.TotalDamaged},
		{"Total revenue", revenue},
		{"Filed", report.CreatedAt.UTC().Format("2006-01-02 15:04 MST")},
	}
	if report.DecidedAt != nil {
		rows = append(rows, []any{"Decided", report.DecidedAt.UTC().Format("2006-01-02 15:04 MST")})
	}
	if report.RejectionReason != "" {
		rows = append(rows, []any{"Rejection reason", report.RejectionReason})
	}
	if report.Notes != "" {
		rows = append(rows, []any{"Notes", report.Notes})
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return err
		}
	}
	return f.SetColWidth(summarySheet, "A", "B", 24)
}
