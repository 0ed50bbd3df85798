package domain

import (
	"encoding/json"
	"fmt"
)

// IssueType tags each kind of data-integrity finding.
type IssueType string

const (
	IssueDupInvoice       IssueType = "DUP_INVOICE"
	IssueInvoiceImbalance IssueType = "INVOICE_IMBALANCE"
	IssueFifoBadCost      IssueType = "FIFO_BAD_COST"
	IssueFifoNegQty       IssueType = "FIFO_NEG_QTY"
	IssuePriceSpike       IssueType = "PRICE_SPIKE"
	IssueOrphanSKUInvoice IssueType = "ORPHAN_SKU_INVOICE"
	IssueOrphanSKUFifo    IssueType = "ORPHAN_SKU_FIFO"
)

// AllIssueTypes lists every issue kind in report order.
func AllIssueTypes() []IssueType {
	return []IssueType{
		IssueDupInvoice,
		IssueInvoiceImbalance,
		IssueFifoBadCost,
		IssueFifoNegQty,
		IssuePriceSpike,
		IssueOrphanSKUInvoice,
		IssueOrphanSKUFifo,
	}
}

// Issue is implemented only by the finding types in this file.
type Issue interface {
	Type() IssueType
	isIssue()
}

// DupInvoice reports an invoice whose identity key was already seen.
type DupInvoice struct {
	InvoiceNumber string `json:"invoice_number"`
	Vendor        string `json:"vendor"`
	Date          string `json:"date"`
}

// InvoiceImbalance reports a header total that disagrees with its lines by more than the tolerance.
type InvoiceImbalance struct {
	InvoiceNumber string `json:"invoice_number"`
	CentsOff      int64  `json:"cents_off"`
	Reported      string `json:"reported"`
	Calculated    string `json:"calculated"`
}

// FifoBadCost reports a cost layer with a missing or negative unit cost.
type FifoBadCost struct {
	SKU          string `json:"sku"`
	Lot          string `json:"lot"`
	Cost         *int64 `json:"cost"`
	Repaired     bool   `json:"repaired"`
	RepairedCost *int64 `json:"repaired_cost,omitempty"`
}

// FifoNegQty reports a cost layer holding a negative quantity.
type FifoNegQty struct {
	SKU string  `json:"sku"`
	Lot string  `json:"lot"`
	Qty float64 `json:"qty"`
}

// PriceSpike reports a latest unit price far from the trailing median.
type PriceSpike struct {
	SKU       string  `json:"sku"`
	Latest    int64   `json:"latest"`
	Median    int64   `json:"median"`
	Deviation float64 `json:"deviation"`
}

// OrphanSKUInvoice reports an invoice line SKU missing from the item master.
type OrphanSKUInvoice struct {
	SKU           string `json:"sku"`
	InvoiceNumber string `json:"invoice_number"`
}

// OrphanSKUFifo reports a cost layer SKU missing from the item master.
type OrphanSKUFifo struct {
	SKU string `json:"sku"`
	Lot string `json:"lot"`
}

func (DupInvoice) Type() IssueType       { return IssueDupInvoice }
func (InvoiceImbalance) Type() IssueType { return IssueInvoiceImbalance }
func (FifoBadCost) Type() IssueType      { return IssueFifoBadCost }
func (FifoNegQty) Type() IssueType       { return IssueFifoNegQty }
func (PriceSpike) Type() IssueType       { return IssuePriceSpike }
func (OrphanSKUInvoice) Type() IssueType { return IssueOrphanSKUInvoice }
func (OrphanSKUFifo) Type() IssueType    { return IssueOrphanSKUFifo }

func (DupInvoice) isIssue()       {}
func (InvoiceImbalance) isIssue() {}
func (FifoBadCost) isIssue()      {}
func (FifoNegQty) isIssue()       {}
func (PriceSpike) isIssue()       {}
func (OrphanSKUInvoice) isIssue() {}
func (OrphanSKUFifo) isIssue()    {}

// Each issue serializes flat with its "type" tag alongside the payload.

func (i DupInvoice) MarshalJSON() ([]byte, error) {
	type payload DupInvoice
	return json.Marshal(struct {
		Type IssueType `json:"type"`
		payload
	}{i.Type(), payload(i)})
}

func (i InvoiceImbalance) MarshalJSON() ([]byte, error) {
	type payload InvoiceImbalance
	return json.Marshal(struct {
		Type IssueType `json:"type"`
		payload
	}{i.Type(), payload(i)})
}

func (i FifoBadCost) MarshalJSON() ([]byte, error) {
	type payload FifoBadCost
	return json.Marshal(struct {
		Type IssueType `json:"type"`
		payload
	}{i.Type(), payload(i)})
}

func (i FifoNegQty) MarshalJSON() ([]byte, error) {
	type payload FifoNegQty
	return json.Marshal(struct {
		Type IssueType `json:"type"`
		payload
	}{i.Type(), payload(i)})
}

func (i PriceSpike) MarshalJSON() ([]byte, error) {
	type payload PriceSpike
	return json.Marshal(struct {
		Type IssueType `json:"type"`
		payload
	}{i.Type(), payload(i)})
}

func (i OrphanSKUInvoice) MarshalJSON() ([]byte, error) {
	type payload OrphanSKUInvoice
	return json.Marshal(struct {
		Type IssueType `json:"type"`
		payload
	}{i.Type(), payload(i)})
}

func (i OrphanSKUFifo) MarshalJSON() ([]byte, error) {
	type payload OrphanSKUFifo
	return json.Marshal(struct {
		Type IssueType `json:"type"`
		payload
	}{i.Type(), payload(i)})
}

// IssueList decodes back into concrete issue types using the "type" tag.
type IssueList []Issue

// UnmarshalJSON implements json.Unmarshaler.
func (l *IssueList) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}

	out := make(IssueList, 0, len(raws))
	for idx, raw := range raws {
		var tag struct {
			Type IssueType `json:"type"`
		}
		if err := json.Unmarshal(raw, &tag); err != nil {
			return fmt.Errorf("issue %d: %w", idx, err)
		}

		issue, err := decodeIssue(tag.Type, raw)
		if err != nil {
			return fmt.Errorf("issue %d: %w", idx, err)
		}
		out = append(out, issue)
	}

	*l = out
	return nil
}

func decodeIssue(t IssueType, raw json.RawMessage) (Issue, error) {
	switch t {
	case IssueDupInvoice:
		var v DupInvoice
		err := json.Unmarshal(raw, &v)
		return v, err
	case IssueInvoiceImbalance:
		var v InvoiceImbalance
		err := json.Unmarshal(raw, &v)
		return v, err
	case IssueFifoBadCost:
		var v FifoBadCost
		err := json.Unmarshal(raw, &v)
		return v, err
	case IssueFifoNegQty:
		var v FifoNegQty
		err := json.Unmarshal(raw, &v)
		return v, err
	case IssuePriceSpike:
		var v PriceSpike
		err := json.Unmarshal(raw, &v)
		return v, err
	case IssueOrphanSKUInvoice:
		var v OrphanSKUInvoice
		err := json.Unmarshal(raw, &v)
		return v, err
	case IssueOrphanSKUFifo:
		var v OrphanSKUFifo
		err := json.Unmarshal(raw, &v)
		return v, err
	default:
		return nil, fmt.Errorf("unknown issue type %q", t)
	}
}

// CountByType tallies issues per type; every known type is present.
func (l IssueList) CountByType() map[IssueType]int {
	counts := make(map[IssueType]int, len(AllIssueTypes()))
	for _, t := range AllIssueTypes() {
		counts[t] = 0
	}
	for _, issue := range l {
		counts[issue.Type()]++
	}
	return counts
}
