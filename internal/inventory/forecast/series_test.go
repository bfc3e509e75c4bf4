package forecast

import (
	"testing"
	"time"

	"github.com/andresuchdata/stockintel/internal/inventory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFillGaps_Monthly(t *testing.T) {
	got, err := FillGaps([]Point{
		{Period: time.Date(2024, time.April, 17, 9, 0, 0, 0, time.UTC), Quantity: 4},
		{Period: month(2024, time.January), Quantity: 1},
		{Period: time.Date(2024, time.January, 20, 0, 0, 0, 0, time.UTC), Quantity: 2},
	}, Monthly)
	require.NoError(t, err)

	require.Len(t, got, 4)
	assert.Equal(t, []float64{3, 0, 0, 4}, Values(got))
	assert.Equal(t, month(2024, time.February), got[1].Period)
}

func TestFillGaps_Daily(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, time.February, d, 0, 0, 0, 0, time.UTC) }

	got, err := FillGaps([]Point{{Period: day(28), Quantity: 1}, {Period: day(26), Quantity: 2}}, Daily)
	require.NoError(t, err)

	assert.Equal(t, []float64{2, 0, 1}, Values(got))
}

func TestFillGaps_Errors(t *testing.T) {
	_, err := FillGaps([]Point{{Period: month(2024, 1), Quantity: -1}}, Monthly)
	assert.ErrorIs(t, err, inventory.ErrInvalidArgument)

	_, err = FillGaps(nil, "weekly")
	assert.ErrorIs(t, err, inventory.ErrInvalidArgument)

	got, err := FillGaps(nil, Monthly)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFillGapsBetween_CountsUnsoldPeriodsAtWindowEdges(t *testing.T) {
	points := []Point{
		{Period: month(2024, time.January), Quantity: 100},
		{Period: month(2024, time.February), Quantity: 100},
		{Period: month(2024, time.March), Quantity: 100},
	}

	got, err := FillGapsBetween(points, Monthly, month(2023, time.November), month(2025, time.January))
	require.NoError(t, err)

	require.Len(t, got, 14)
	assert.Equal(t, month(2023, time.November), got[0].Period)
	assert.Equal(t, month(2024, time.December), got[13].Period)
	assert.Equal(t, []float64{0, 0, 100, 100, 100, 0, 0, 0, 0, 0, 0, 0, 0, 0}, Values(got))
}

func TestFillGapsBetween_DropsPointsOutsideWindow(t *testing.T) {
	points := []Point{
		{Period: month(2023, time.December), Quantity: 7},
		{Period: month(2024, time.February), Quantity: 5},
		{Period: month(2024, time.April), Quantity: 9},
	}

	got, err := FillGapsBetween(points, Monthly, month(2024, time.January), month(2024, time.April))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 5, 0}, Values(got))
}

func TestFillGapsBetween_OpenEnds(t *testing.T) {
	points := []Point{{Period: month(2024, time.March), Quantity: 2}}

	got, err := FillGapsBetween(points, Monthly, month(2024, time.January), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 2}, Values(got))

	got, err = FillGapsBetween(points, Monthly, time.Time{}, month(2024, time.June))
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 0, 0}, Values(got))

	got, err = FillGapsBetween(nil, Monthly, month(2024, time.January), month(2024, time.April))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0}, Values(got))

	got, err = FillGapsBetween(nil, Monthly, month(2024, time.January), time.Time{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFillGapsBetween_InvalidWindow(t *testing.T) {
	_, err := FillGapsBetween(nil, Monthly, month(2024, time.May), month(2024, time.May))
	assert.ErrorIs(t, err, inventory.ErrInvalidArgument)

	day := time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)
	_, err = FillGapsBetween(nil, Daily, day, day.AddDate(100, 0, 0))
	assert.ErrorIs(t, err, inventory.ErrInvalidArgument)
}

func TestSeasonalIndices(t *testing.T) {
	idx, ok := SeasonalIndices([]float64{10, 30, 10, 30}, 2, 2)
	require.True(t, ok)
	assert.InDeltaSlice(t, []float64{0.5, 1.5}, idx, 1e-12)

	_, ok = SeasonalIndices([]float64{10, 30, 10}, 2, 2)
	assert.False(t, ok)

	_, ok = SeasonalIndices([]float64{0, 0, 0, 0}, 2, 2)
	assert.False(t, ok)
}
