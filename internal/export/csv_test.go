package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/invhealth/internal/domain"
)

func TestWriteIssuesCSV(t *testing.T) {
	bad := int64(-5)
	fixed := int64(200)
	issues := domain.IssueList{
		domain.DupInvoice{InvoiceNumber: "1001", Vendor: "ACME, Inc", Date: "2025-01-05"},
		domain.FifoBadCost{SKU: "X", Lot: "L1", Cost: &bad, Repaired: true, RepairedCost: &fixed},
		domain.FifoBadCost{SKU: "Y", Lot: "L2"},
		domain.PriceSpike{SKU: "Y", Latest: 700, Median: 500, Deviation: 0.4},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteIssuesCSV(&buf, issues))

	want := "type,sku,lot,invoice_number,vendor,date,detail\n" +
		"DUP_INVOICE,,,1001,\"ACME, Inc\",2025-01-05,\n" +
		"FIFO_BAD_COST,X,L1,,,,cost=-5 repaired_cost=200\n" +
		"FIFO_BAD_COST,Y,L2,,,,cost=null\n" +
		"PRICE_SPIKE,Y,,,,,latest=700 median=500 deviation=0.4\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteStockoutRisksCSV(t *testing.T) {
	risks := []domain.StockoutRisk{
		{SKU: "Z", Name: "Widget", OnHand: 1.5, SafetyStock: 3, ReorderPoint: 12, ForecastQty: 5, ProjectedStock: -3.5},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteStockoutRisksCSV(&buf, risks))

	assert.Equal(t,
		"sku,name,on_hand,safety_stock,reorder_point,forecast_qty,projected_stock\n"+
			"Z,Widget,1.5,3,12,5,-3.5\n",
		buf.String())
}

func TestFiles(t *testing.T) {
	files, err := Files(&domain.AuditReport{})
	require.NoError(t, err)

	assert.Len(t, files, 2)
	assert.Equal(t, "type,sku,lot,invoice_number,vendor,date,detail\n", string(files["issues.csv"]))
	assert.Contains(t, string(files["stockout_risks.csv"]), "projected_stock")
}
