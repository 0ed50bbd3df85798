package audit

import (
	"time"

	"github.com/andresuchdata/invhealth/internal/domain"
)

func day(s string) time.Time {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func cents(v int64) *int64 { return &v }

// invoice builds a balanced invoice whose fiscal period already matches its date.
func invoice(id int64, vendor, number, date string, lines ...domain.InvoiceLine) domain.Invoice {
	inv := domain.Invoice{
		ID:            id,
		Vendor:        vendor,
		InvoiceNumber: number,
		Date:          day(date),
		FiscalPeriod:  DeriveFiscalPeriod(day(date)),
	}
	for i, l := range lines {
		l.InvoiceID = id
		l.LineNo = i + 1
		if l.ID == 0 {
			l.ID = id*100 + int64(i+1)
		}
		inv.Lines = append(inv.Lines, l)
	}
	inv.TotalCents = inv.LineSumCents()
	return inv
}

func line(sku string, qty float64, ext int64) domain.InvoiceLine {
	return domain.InvoiceLine{SKU: sku, Quantity: qty, ExtPriceCents: ext}
}
