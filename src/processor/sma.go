package processor

import (
	"fmt"

	"stream-processor/src/models"
)

// -----------------------------------------------------------------------------

// Reducer turns the price column of a batch into a derived series.
type Reducer func(prices []float64) ([]float64, error)

// -----------------------------------------------------------------------------

// ToMatrix converts a batch into a dense matrix with the fixed column order
// {timestamp, price, volume, bid, ask}.
func ToMatrix(batch []models.MTick) models.MMatrix {
	matrix := make(models.MMatrix, len(batch))
	for i, tick := range batch {
		matrix[i] = tick.Row()
	}
	return matrix
}

// -----------------------------------------------------------------------------

// Column extracts one column of the matrix.
func Column(matrix models.MMatrix, col int) ([]float64, error) {
	if col < 0 || col >= models.MatrixColumns {
		return nil, fmt.Errorf("column %d out of range [0, %d)", col, models.MatrixColumns)
	}
	out := make([]float64, len(matrix))
	for i := range matrix {
		out[i] = matrix[i][col]
	}
	return out, nil
}

// -----------------------------------------------------------------------------

// SimpleMovingAverage computes a trailing moving average over window samples using
// prefix-sum differencing: avg[i] = (cumsum[i+window] - cumsum[i]) / window for
// i in [0, len(prices)-window). No partial windows are emitted, so a series no longer
// than the window yields an empty (non-nil) result.
func SimpleMovingAverage(prices []float64, window int) ([]float64, error) {
	if window <= 0 {
		return nil, fmt.Errorf("moving average window must be positive (got %d)", window)
	}

	n := len(prices) - window
	if n <= 0 {
		return []float64{}, nil
	}

	cumsum := make([]float64, len(prices)+1)
	for i, p := range prices {
		cumsum[i+1] = cumsum[i] + p
	}

	w := float64(window)
	avg := make([]float64, n)
	for i := range avg {
		avg[i] = (cumsum[i+window] - cumsum[i]) / w
	}
	return avg, nil
}

// -----------------------------------------------------------------------------

// MovingAverageReducer returns the default reducer for the given window.
func MovingAverageReducer(window int) Reducer {
	return func(prices []float64) ([]float64, error) {
		return SimpleMovingAverage(prices, window)
	}
}
