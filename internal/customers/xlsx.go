package customers

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"voice-negotiator-go/internal/logger"
	"voice-negotiator-go/internal/types"
)

// column indices detected from a header row; -1 means absent.
type profileColumns struct {
	id, name, birth, doc, phone, email, debt, due, status int
}

func detectProfileColumns(header []string) profileColumns {
	c := profileColumns{-1, -1, -1, -1, -1, -1, -1, -1, -1}
	set := func(dst *int, i int) {
		if *dst == -1 {
			*dst = i
		}
	}
	for i, h := range header {
		l := strings.ToLower(strings.TrimSpace(h))
		switch {
		case strings.Contains(l, "nacimiento") || strings.Contains(l, "birth"):
			set(&c.birth, i)
		case strings.Contains(l, "vencimiento") || strings.Contains(l, "due"):
			set(&c.due, i)
		case strings.Contains(l, "documento") || strings.Contains(l, "document"):
			set(&c.doc, i)
		case strings.Contains(l, "tel") || strings.Contains(l, "phone"):
			set(&c.phone, i)
		case strings.Contains(l, "correo") || strings.Contains(l, "mail"):
			set(&c.email, i)
		case strings.Contains(l, "deuda") || strings.Contains(l, "debt") || strings.Contains(l, "monto"):
			set(&c.debt, i)
		case strings.Contains(l, "estado") || strings.Contains(l, "status"):
			set(&c.status, i)
		case strings.Contains(l, "nombre") || strings.Contains(l, "name"):
			set(&c.name, i)
		case strings.Contains(l, "id"):
			set(&c.id, i)
		}
	}
	return c
}

func cell(r []string, idx int) string {
	if idx >= 0 && idx < len(r) {
		return strings.TrimSpace(r[idx])
	}
	return ""
}

// maxExcelSerial is 9999-12-31, the last date a workbook can hold.
const maxExcelSerial = 2958465

// dateCell renders a date column. Date-formatted cells come back as Excel
// serial numbers and are written as YYYY-MM-DD; text is kept as written.
func dateCell(r []string, idx int, date1904 bool) string {
	v := cell(r, idx)
	serial, err := strconv.ParseFloat(v, 64)
	if err != nil || serial <= 0 || serial > maxExcelSerial {
		return v
	}
	t, err := excelize.ExcelDateToTime(serial, date1904)
	if err != nil {
		return v
	}
	return t.Format(time.DateOnly)
}

func uses1904(f *excelize.File) bool {
	props, err := f.GetWorkbookProps()
	return err == nil && props.Date1904 != nil && *props.Date1904
}

func parseAmount(s string) (float64, error) {
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

// LoadXLSX reads customers from the first sheet of a workbook. A second sheet,
// when present, carries payments as (customer id, date, amount) rows.
func LoadXLSX(path string, log *logger.Logger) ([]types.CustomerProfile, error) {
	entry := log.Component("customers.xlsx").WithField("path", path)

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("customers: open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("customers: workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("customers: read rows: %w", err)
	}
	if len(rows) <= 1 {
		return nil, fmt.Errorf("customers: no data rows in %q", sheets[0])
	}

	date1904 := uses1904(f)
	cols := detectProfileColumns(rows[0])
	if cols.id == -1 || cols.name == -1 {
		return nil, fmt.Errorf("customers: sheet %q needs id and name columns", sheets[0])
	}
	entry.WithField("columns", fmt.Sprintf("%+v", cols)).Debug("detected customer columns")

	var out []types.CustomerProfile
	index := map[int]int{}
	for i, r := range rows[1:] {
		idText := cell(r, cols.id)
		if idText == "" {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSuffix(idText, ".0"))
		if err != nil {
			return nil, fmt.Errorf("customers: row %d: bad id %q", i+2, idText)
		}
		debt, err := parseAmount(cell(r, cols.debt))
		if err != nil {
			return nil, fmt.Errorf("customers: row %d: bad debt: %w", i+2, err)
		}
		index[id] = len(out)
		out = append(out, types.CustomerProfile{
			ID:             id,
			Name:           cell(r, cols.name),
			BirthDate:      dateCell(r, cols.birth, date1904),
			DocumentNumber: cell(r, cols.doc),
			Phone:          cell(r, cols.phone),
			Email:          cell(r, cols.email),
			DebtAmount:     debt,
			DueDate:        dateCell(r, cols.due, date1904),
			AccountStatus:  types.AccountStatus(cell(r, cols.status)),
		})
	}

	if len(sheets) > 1 {
		if err := loadPayments(f, sheets[1], date1904, out, index); err != nil {
			return nil, err
		}
	}
	entry.WithField("customers", len(out)).Info("loaded customers from workbook")
	return out, nil
}

func loadPayments(f *excelize.File, sheet string, date1904 bool, out []types.CustomerProfile, index map[int]int) error {
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return fmt.Errorf("customers: read payments: %w", err)
	}
	if len(rows) <= 1 {
		return nil
	}
	idIdx, dateIdx, amountIdx := -1, -1, -1
	for i, h := range rows[0] {
		l := strings.ToLower(strings.TrimSpace(h))
		switch {
		case strings.Contains(l, "fecha") || strings.Contains(l, "date"):
			dateIdx = i
		case strings.Contains(l, "monto") || strings.Contains(l, "amount"):
			amountIdx = i
		case strings.Contains(l, "id") || strings.Contains(l, "cliente"):
			idIdx = i
		}
	}
	if idIdx == -1 || dateIdx == -1 || amountIdx == -1 {
		return fmt.Errorf("customers: payments sheet %q needs id, date and amount columns", sheet)
	}
	for i, r := range rows[1:] {
		id, err := strconv.Atoi(strings.TrimSuffix(cell(r, idIdx), ".0"))
		if err != nil {
			continue
		}
		pos, ok := index[id]
		if !ok {
			return fmt.Errorf("customers: payment row %d references unknown customer %d", i+2, id)
		}
		amount, err := parseAmount(cell(r, amountIdx))
		if err != nil {
			return fmt.Errorf("customers: payment row %d: bad amount: %w", i+2, err)
		}
		out[pos].PaymentHistory = append(out[pos].PaymentHistory, types.Payment{
			Date:   dateCell(r, dateIdx, date1904),
			Amount: amount,
		})
	}
	return nil
}
