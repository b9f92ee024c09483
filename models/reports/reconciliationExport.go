package reports

import (
	"strings"

	"github.com/rajendraambati/leaf-trace-ai-sub002/workflow"
	"github.com/xuri/excelize/v2"
)

var reconciliationHeaders = []string{
	"PO Number", "Product Type", "Ordered Qty (kg)", "Confirmed Qty (kg)",
	"Status", "GST Compliant", "Audit Ready", "Mismatches", "Suggestions",
}

// BuildReconciliationWorkbook renders the latest reconciliation records into
// an xlsx workbook for the compliance team.
func BuildReconciliationWorkbook(records []workflow.Record, stats workflow.Summary) (*excelize.File, error) {
	f := excelize.NewFile()
	const sheet = "Reconciliation"
	idx, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	for col, h := range reconciliationHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}

	for i, rec := range records {
		confirmed := ""
		if rec.Order.ConfirmedQuantityKg != nil {
			confirmed = rec.Order.ConfirmedQuantityKg.String()
		}
		values := []interface{}{
			rec.Order.PoNumber,
			rec.Order.ProductType,
			rec.Order.QuantityKg.String(),
			confirmed,
			string(rec.Status),
			rec.GstCompliant,
			rec.AuditReady,
			strings.Join(rec.Mismatches, "; "),
			strings.Join(rec.Suggestions, "; "),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	// Summary block under the table.
	row := len(records) + 3
	summary := [][2]interface{}{
		{"Total", stats.Total},
		{"Matched", stats.Matched},
		{"Partial", stats.Partial},
		{"Missing data", stats.MissingData},
		{"GST compliant", stats.GstCompliantCount},
		{"Audit ready", stats.AuditReadyCount},
	}
	for i, kv := range summary {
		keyCell, err := excelize.CoordinatesToCellName(1, row+i)
		if err != nil {
			return nil, err
		}
		valCell, err := excelize.CoordinatesToCellName(2, row+i)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, keyCell, kv[0]); err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, valCell, kv[1]); err != nil {
			return nil, err
		}
	}

	return f, nil
}
