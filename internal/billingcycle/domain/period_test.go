package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeriod(t *testing.T) {
	start, err := ParsePeriod("2024-03")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), start)

	for _, bad := range []string{"", "2024-3", "2024-13", "03-2024", "2024-03-01"} {
		_, err := ParsePeriod(bad)
		assert.ErrorIs(t, err, ErrInvalidPeriod, bad)
	}
}

func TestPreviousPeriod(t *testing.T) {
	prev, err := PreviousPeriod("2024-03")
	require.NoError(t, err)
	assert.Equal(t, "2024-02", prev)

	prev, err = PreviousPeriod("2024-01")
	require.NoError(t, err)
	assert.Equal(t, "2023-12", prev)
}

func TestPeriodLabel(t *testing.T) {
	assert.Equal(t, "March 2024", PeriodLabel("2024-03"))
	assert.Equal(t, "junk", PeriodLabel("junk"))
}

func TestNotReadyErrorMessage(t *testing.T) {
	err := &NotReadyError{Checklist: Checklist{Items: []ChecklistItem{
		{Key: CheckCommonCharges, Gating: true},
		{Key: CheckFormulaBalanced, Gating: true, Passed: true},
	}}}
	assert.Equal(t, "not_ready: [common_charges_added]", err.Error())
}
