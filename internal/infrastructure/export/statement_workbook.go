// Package export renders tenancy statements as spreadsheet workbooks.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rentledger/backend/internal/domain/rent"
	"github.com/rentledger/backend/internal/domain/shared/valueobject"
	"github.com/xuri/excelize/v2"
)

// ContentType is the media type of the generated workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Sheet names, in workbook order.
const (
	SheetSummary  = "Summary"
	SheetPayments = "Payments"
	SheetOverdue  = "Overdue"
)

const dateLayout = "2006-01-02"

var paymentHeader = []any{
	"Transaction ID", "Recorded", "Paid", "Purpose", "Method",
	"Billing months", "Amount", "Currency", "Status", "Reference", "Refund reason",
}

// StatementWorkbook is an in-memory xlsx rendering of one statement.
type StatementWorkbook struct {
	file    *excelize.File
	header  int
	amounts map[int32]int
}

// FileName is the suggested download name for a statement.
func FileName(s *rent.Statement) string {
	return fmt.Sprintf("statement-%s-%s.xlsx", s.Tenancy.ID.String()[:8], s.AsOf.UTC().Format(dateLayout))
}

// NewStatementWorkbook renders s. Amounts are written as numbers in major
// units with the currency's number of decimals.
func NewStatementWorkbook(s *rent.Statement) (*StatementWorkbook, error) {
	if s == nil || s.Tenancy == nil {
		return nil, fmt.Errorf("statement has no tenancy")
	}

	w := &StatementWorkbook{file: excelize.NewFile(), amounts: make(map[int32]int)}
	if err := w.init(); err != nil {
		_ = w.file.Close()
		return nil, err
	}
	for _, render := range []func(*rent.Statement) error{w.summary, w.payments, w.overdue} {
		if err := render(s); err != nil {
			_ = w.file.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *StatementWorkbook) init() error {
	f := w.file
	f.SetSheetName("Sheet1", SheetSummary)
	for _, name := range []string{SheetPayments, SheetOverdue} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	w.header = header
	return nil
}

func (w *StatementWorkbook) amountStyle(cur valueobject.Currency) (int, error) {
	scale := cur.Scale()
	if id, ok := w.amounts[scale]; ok {
		return id, nil
	}
	format := "#,##0"
	if scale > 0 {
		format += "." + strings.Repeat("0", int(scale))
	}
	id, err := w.file.NewStyle(&excelize.Style{CustomNumFmt: &format})
	if err != nil {
		return 0, fmt.Errorf("amount style: %w", err)
	}
	w.amounts[scale] = id
	return id, nil
}

func (w *StatementWorkbook) setAmount(sheet, cell string, m valueobject.Money) error {
	if err := w.file.SetCellValue(sheet, cell, m.Decimal().InexactFloat64()); err != nil {
		return err
	}
	style, err := w.amountStyle(m.Currency())
	if err != nil {
		return err
	}
	return w.file.SetCellStyle(sheet, cell, cell, style)
}

func (w *StatementWorkbook) summary(s *rent.Statement) error {
	t, b := s.Tenancy, s.Balance
	end := ""
	if t.EndDate != nil {
		end = t.EndDate.Format(dateLayout)
	}

	rows := [][]any{
		{"Tenancy", t.ID.String()},
		{"Unit", t.UnitID.String()},
		{"Tenant", t.TenantID.String()},
		{"Status", string(t.Status)},
		{"Start date", t.StartDate.Format(dateLayout)},
		{"End date", end},
		{"As of", s.AsOf.UTC().Format(time.RFC3339)},
		{"Computed through", b.EffectiveDate.Format(dateLayout)},
		{"Currency", t.MonthlyRent.Currency().String()},
		{"Months elapsed", b.MonthsElapsed},
		{"Rent payments", b.MonthsPaid},
		{"Months covered", b.MonthsCovered},
		{"Months overdue", b.MonthsOverdue},
		{"Settled", b.IsSettled()},
	}
	for i, row := range rows {
		if err := w.file.SetSheetRow(SheetSummary, cell(1, i+1), &row); err != nil {
			return fmt.Errorf("summary row %d: %w", i+1, err)
		}
	}

	money := []struct {
		label string
		value valueobject.Money
	}{
		{"Monthly rent", t.MonthlyRent},
		{"Total due", b.TotalDue},
		{"Total rent paid", b.TotalPaid},
		{"Deposit credit", b.DepositCredit},
		{"Balance", b.Balance},
	}
	for i, m := range money {
		row := len(rows) + i + 1
		if err := w.file.SetCellValue(SheetSummary, cell(1, row), m.label); err != nil {
			return err
		}
		if err := w.setAmount(SheetSummary, cell(2, row), m.value); err != nil {
			return fmt.Errorf("summary %s: %w", m.label, err)
		}
	}

	last := len(rows) + len(money)
	if err := w.file.SetCellStyle(SheetSummary, "A1", cell(1, last), w.header); err != nil {
		return err
	}
	if err := w.file.SetColWidth(SheetSummary, "A", "A", 20); err != nil {
		return err
	}
	return w.file.SetColWidth(SheetSummary, "B", "B", 40)
}

func (w *StatementWorkbook) payments(s *rent.Statement) error {
	if err := w.writeHeader(SheetPayments, paymentHeader); err != nil {
		return err
	}
	for i, p := range s.Payments {
		r := i + 2
		paid := ""
		if p.PaidAt != nil {
			paid = p.PaidAt.UTC().Format(time.RFC3339)
		}
		months := make([]string, len(p.BillingMonths))
		for j, m := range p.BillingMonths {
			months[j] = m.String()
		}
		row := []any{
			p.TransactionID,
			p.CreatedAt.UTC().Format(time.RFC3339),
			paid,
			string(p.Purpose),
			string(p.Method),
			strings.Join(months, ", "),
			nil,
			p.Amount.Currency().String(),
			string(p.Status),
			p.Reference,
			p.RefundReason,
		}
		if err := w.file.SetSheetRow(SheetPayments, cell(1, r), &row); err != nil {
			return fmt.Errorf("payment row %d: %w", r, err)
		}
		if err := w.setAmount(SheetPayments, cell(7, r), p.Amount); err != nil {
			return err
		}
	}
	return w.file.SetColWidth(SheetPayments, "A", "K", 18)
}

func (w *StatementWorkbook) overdue(s *rent.Statement) error {
	if err := w.writeHeader(SheetOverdue, []any{"Month", "Rent due"}); err != nil {
		return err
	}
	for i, m := range s.Overdue {
		r := i + 2
		if err := w.file.SetCellValue(SheetOverdue, cell(1, r), m.String()); err != nil {
			return err
		}
		if err := w.setAmount(SheetOverdue, cell(2, r), s.Tenancy.MonthlyRent); err != nil {
			return err
		}
	}
	return nil
}

func (w *StatementWorkbook) writeHeader(sheet string, header []any) error {
	if err := w.file.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("%s header: %w", sheet, err)
	}
	return w.file.SetCellStyle(sheet, "A1", cell(len(header), 1), w.header)
}

// WriteTo streams the workbook to out.
func (w *StatementWorkbook) WriteTo(out io.Writer) (int64, error) {
	return w.file.WriteTo(out)
}

// SaveAs writes the workbook to path.
func (w *StatementWorkbook) SaveAs(path string) error {
	return w.file.SaveAs(path)
}

// Close releases the workbook's temporary resources.
func (w *StatementWorkbook) Close() error {
	return w.file.Close()
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
