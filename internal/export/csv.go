// Package export renders audit reports as flat files for archiving.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/andresuchdata/invhealth/internal/domain"
)

var issueHeader = []string{"type", "sku", "lot", "invoice_number", "vendor", "date", "detail"}

var riskHeader = []string{"sku", "name", "on_hand", "safety_stock", "reorder_point", "forecast_qty", "projected_stock"}

// WriteIssuesCSV writes one row per issue in report order
func WriteIssuesCSV(w io.Writer, issues domain.IssueList) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(issueHeader); err != nil {
		return err
	}
	for _, issue := range issues {
		if err := writer.Write(issueRow(issue)); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteStockoutRisksCSV writes one row per at-risk item
func WriteStockoutRisksCSV(w io.Writer, risks []domain.StockoutRisk) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(riskHeader); err != nil {
		return err
	}
	for _, r := range risks {
		record := []string{
			r.SKU,
			r.Name,
			formatQty(r.OnHand),
			strconv.FormatInt(r.SafetyStock, 10),
			strconv.FormatInt(r.ReorderPoint, 10),
			formatQty(r.ForecastQty),
			formatQty(r.ProjectedStock),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// Files renders the archive bundle of a report keyed by file name.
func Files(report *domain.AuditReport) (map[string][]byte, error) {
	var issues, risks bytes.Buffer
	if err := WriteIssuesCSV(&issues, report.Issues); err != nil {
		return nil, fmt.Errorf("failed to write issues csv: %w", err)
	}
	if err := WriteStockoutRisksCSV(&risks, report.StockoutRisks); err != nil {
		return nil, fmt.Errorf("failed to write stockout risks csv: %w", err)
	}
	return map[string][]byte{
		"issues.csv":         issues.Bytes(),
		"stockout_risks.csv": risks.Bytes(),
	}, nil
}

func issueRow(issue domain.Issue) []string {
	row := make([]string, len(issueHeader))
	row[0] = string(issue.Type())

	switch v := issue.(type) {
	case domain.DupInvoice:
		row[3], row[4], row[5] = v.InvoiceNumber, v.Vendor, v.Date
	case domain.InvoiceImbalance:
		row[3] = v.InvoiceNumber
		row[6] = fmt.Sprintf("cents_off=%d reported=%s calculated=%s", v.CentsOff, v.Reported, v.Calculated)
	case domain.FifoBadCost:
		row[1], row[2] = v.SKU, v.Lot
		row[6] = fmt.Sprintf("cost=%s", formatCents(v.Cost))
		if v.Repaired {
			row[6] += fmt.Sprintf(" repaired_cost=%s", formatCents(v.RepairedCost))
		}
	case domain.FifoNegQty:
		row[1], row[2] = v.SKU, v.Lot
		row[6] = "qty=" + formatQty(v.Qty)
	case domain.PriceSpike:
		row[1] = v.SKU
		row[6] = fmt.Sprintf("latest=%d median=%d deviation=%s", v.Latest, v.Median, strconv.FormatFloat(v.Deviation, 'f', -1, 64))
	case domain.OrphanSKUInvoice:
		row[1], row[3] = v.SKU, v.InvoiceNumber
	case domain.OrphanSKUFifo:
		row[1], row[2] = v.SKU, v.Lot
	}
	return row
}

func formatCents(c *int64) string {
	if c == nil {
		return "null"
	}
	return strconv.FormatInt(*c, 10)
}

func formatQty(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}
