package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuantile(t *testing.T) {
	values := []float64{5, 1, 4, 2, 3}

	assert.Equal(t, 1.0, Quantile(values, 0))
	assert.Equal(t, 2.0, Quantile(values, 0.25))
	assert.Equal(t, 3.0, Quantile(values, 0.5))
	assert.Equal(t, 5.0, Quantile(values, 1))
	assert.Equal(t, 5.0, Quantile(values, 7), "q is clamped")
	assert.Equal(t, 0.0, Quantile(nil, 0.5))

	// input must not be reordered
	assert.Equal(t, []float64{5, 1, 4, 2, 3}, values)
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 2.0, Median([]float64{1, 3, 2}))
	assert.Equal(t, 2.5, Median([]float64{1, 2, 3, 4}))
	assert.Equal(t, 0.0, Median(nil))
}

func TestMedianAbsoluteDeviation(t *testing.T) {
	assert.Equal(t, 1.0, MedianAbsoluteDeviation([]float64{1, 2, 3, 4, 100}))
	assert.Equal(t, 0.0, MedianAbsoluteDeviation([]float64{4, 4, 4}))
	assert.Equal(t, 0.0, MedianAbsoluteDeviation(nil))
}

func TestMADToSigma(t *testing.T) {
	assert.InDelta(t, 2.506, MADToSigma(2), 1e-9)
}

func TestMean(t *testing.T) {
	assert.Equal(t, 4.0, Mean([]float64{2, 4, 6}))
	assert.Equal(t, 0.0, Mean(nil))
}
