package models

import (
	"time"
)

// -----------------------------------------------------------------------------

// MTick represents one normalized trade event.
// All fields are zero when the upstream message does not carry them.
type MTick struct {
	Timestamp float64 `json:"timestamp"`
	Price     float64 `json:"price"`
	Volume    float64 `json:"volume"`
	Bid       float64 `json:"bid"`
	Ask       float64 `json:"ask"`
}

// -----------------------------------------------------------------------------

// Column indexes of a MMatrix row.
const (
	ColumnTimestamp = iota
	ColumnPrice
	ColumnVolume
	ColumnBid
	ColumnAsk

	MatrixColumns
)

// MMatrix is the dense numeric form of a batch, one row per tick,
// columns ordered {timestamp, price, volume, bid, ask}.
type MMatrix [][MatrixColumns]float64

// -----------------------------------------------------------------------------

// Row returns the tick as a matrix row.
func (t MTick) Row() [MatrixColumns]float64 {
	return [MatrixColumns]float64{t.Timestamp, t.Price, t.Volume, t.Bid, t.Ask}
}

// -----------------------------------------------------------------------------

// MProcessedResult is one derived series computed from a batch of ticks.
// It is never modified after being appended to the results log.
type MProcessedResult struct {
	ID             string    `json:"id"`
	Source         string    `json:"source"`
	Series         []float64 `json:"series"`
	Window         int       `json:"window"`
	BatchSize      int       `json:"batch_size"`
	FirstTimestamp float64   `json:"first_timestamp"`
	LastTimestamp  float64   `json:"last_timestamp"`
	ComputedAt     time.Time `json:"computed_at"`
}

// -----------------------------------------------------------------------------

// Clone returns a deep copy so readers never share the series backing array.
func (r MProcessedResult) Clone() MProcessedResult {
	out := r
	if r.Series != nil {
		out.Series = make([]float64, len(r.Series))
		copy(out.Series, r.Series)
	}
	return out
}
