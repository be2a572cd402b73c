package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCronbachAlpha_PerfectCorrelation(t *testing.T) {
	data := [][]float64{
		{0, 0, 0},
		{1, 1, 1},
		{2, 2, 2},
		{3, 3, 3},
	}
	assert.InDelta(t, 1.0, CronbachAlpha(data), 0.001)
}

func TestCronbachAlpha_Bounds(t *testing.T) {
	data := [][]float64{
		{1, 2, 3},
		{2, 1, 4},
		{3, 0, 5},
		{4, -1, 6},
	}
	got := CronbachAlpha(data)
	assert.GreaterOrEqual(t, got, 0.0)
	assert.LessOrEqual(t, got, 1.0)
}

func TestCronbachAlpha_Degenerate(t *testing.T) {
	assert.Zero(t, CronbachAlpha(nil))
	assert.Zero(t, CronbachAlpha([][]float64{{1}, {2}}))
	assert.Zero(t, CronbachAlpha([][]float64{{1, 1}, {2}}))
	assert.Zero(t, CronbachAlpha([][]float64{{2, 2}, {2, 2}}))
}
