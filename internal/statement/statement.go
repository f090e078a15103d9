// Package statement renders a customer's ledger with one business as an xlsx workbook.
package statement

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/khatape/khata-ledger/internal/model"
	"github.com/xuri/excelize/v2"
)

const (
	SheetName   = "Statement"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	dateLayout  = "2006-01-02 15:04"
)

var headers = []string{"Date", "Type", "Notes", "Method", "Credit", "Payment", "Balance"}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// Build writes transactions oldest first with a running balance and a closing total.
func Build(business *model.Business, customer *model.Customer, txs []*model.Transaction, generatedAt time.Time) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}

	titleStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	if err != nil {
		return nil, err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return nil, err
	}

	set := func(cell string, v interface{}) {
		if err == nil {
			err = f.SetCellValue(SheetName, cell, v)
		}
	}

	set("A1", business.Name)
	set("A2", fmt.Sprintf("Customer: %s (%s)", customer.Name, customer.Phone))
	set("A3", "Generated: "+generatedAt.UTC().Format(dateLayout)+" UTC")
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(SheetName, "A1", "A1", titleStyle); err != nil {
		return nil, err
	}

	const headerRow = 5
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, headerRow)
		set(cell, h)
	}
	if err := f.SetCellStyle(SheetName, "A5", "G5", headerStyle); err != nil {
		return nil, err
	}

	balance := model.Zero()
	row := headerRow
	for _, tx := range txs {
		row++
		balance = balance.Add(tx.Delta())

		method := ""
		if tx.PaymentMethod != nil {
			method = *tx.PaymentMethod
		}
		set(fmt.Sprintf("A%d", row), tx.CreatedAt.UTC().Format(dateLayout))
		set(fmt.Sprintf("B%d", row), string(tx.Type))
		set(fmt.Sprintf("C%d", row), tx.Notes)
		set(fmt.Sprintf("D%d", row), method)
		if tx.Type == model.TransactionTypeCredit {
			set(fmt.Sprintf("E%d", row), tx.Amount.InexactFloat64())
		} else {
			set(fmt.Sprintf("F%d", row), tx.Amount.InexactFloat64())
		}
		set(fmt.Sprintf("G%d", row), balance.InexactFloat64())
	}

	row += 2
	set(fmt.Sprintf("F%d", row), "Closing balance")
	set(fmt.Sprintf("G%d", row), balance.InexactFloat64())
	if err != nil {
		return nil, err
	}

	if err := f.SetCellStyle(SheetName, "E6", fmt.Sprintf("G%d", row), moneyStyle); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(SheetName, "A", "B", 18); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(SheetName, "C", "C", 36); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(SheetName, "D", "G", 15); err != nil {
		return nil, err
	}
	return f, nil
}

// Render is Build followed by serialisation.
func Render(business *model.Business, customer *model.Customer, txs []*model.Transaction, generatedAt time.Time) ([]byte, error) {
	f, err := Build(business, customer, txs, generatedAt)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write statement: %w", err)
	}
	return buf.Bytes(), nil
}

func FileName(business *model.Business, customer *model.Customer, at time.Time) string {
	clean := func(s string) string {
		return strings.Trim(unsafeFileChars.ReplaceAllString(s, "_"), "_")
	}
	return fmt.Sprintf("%s_%s_%s.xlsx", clean(business.Name), clean(customer.Name), at.UTC().Format("2006-01-02"))
}
