package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("2025-03")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC), p)

	_, err = ParsePeriod("March 2025")
	assert.Error(t, err)

	assert.Equal(t, p, PeriodStart(time.Date(2025, time.March, 31, 23, 0, 0, 0, time.UTC)))
}

func TestProductKey(t *testing.T) {
	assert.Equal(t, "SKU-1", Product{ID: "p1", SKU: "SKU-1"}.Key())
	assert.Equal(t, "p1", Product{ID: "p1"}.Key())
}
