package core

// Disposition is the terminal outcome of a processed intent.
type Disposition string

// Dispositions
const (
	DispositionFilled          Disposition = "FILLED"
	DispositionPartiallyFilled Disposition = "PARTIALLY_FILLED"
	DispositionRested          Disposition = "RESTED"
	DispositionCanceled        Disposition = "CANCELED"
	DispositionModified        Disposition = "MODIFIED"
	DispositionRejected        Disposition = "REJECTED"
)

// Reject and kill reasons carried on reports
const (
	ReasonNoLiquidity = "liquidity exhausted"
)

// Fill records one match. Fills always execute at the maker's resting
// price; price improvement goes to the maker's counterparty implicitly.
type Fill struct {
	MakerID        OrderID `json:"makerID"`
	TakerID        OrderID `json:"takerID"`
	Price          int64   `json:"price"`
	Quantity       int64   `json:"quantity"`
	MakerRemaining int64   `json:"makerRemaining"`
}

// Report is the ordered outcome batch for one processed intent. It is
// produced synchronously before the intent call returns; delivery to
// subscribers is the caller's concern and never blocks the book.
type Report struct {
	OrderID     OrderID     `json:"orderID"`
	Side        Side        `json:"side"`
	Type        OrderType   `json:"type"`
	Price       int64       `json:"price"`
	Quantity    int64       `json:"quantity"`
	Executed    int64       `json:"executed"`
	Remaining   int64       `json:"remaining"`
	Fills       []Fill      `json:"fills,omitempty"`
	Disposition Disposition `json:"disposition"`
	Reason      string      `json:"reason,omitempty"`
	Stored      bool        `json:"stored"`
}

func newReport(id OrderID, t Ticket) *Report {
	return &Report{
		OrderID:   id,
		Side:      t.Side,
		Type:      t.Type,
		Price:     t.Price,
		Quantity:  t.Quantity,
		Remaining: t.Quantity,
	}
}

func (r *Report) appendFill(f Fill) {
	r.Fills = append(r.Fills, f)
	r.Executed += f.Quantity
	r.Remaining -= f.Quantity
}

func (r *Report) reject(reason string) *Report {
	r.Disposition = DispositionRejected
	r.Reason = reason
	return r
}

// IsPartial reports whether the intent executed some quantity but not
// all of it.
func (r *Report) IsPartial() bool {
	return r.Executed > 0 && r.Remaining > 0
}
