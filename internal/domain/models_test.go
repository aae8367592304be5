package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityKind_Valid(t *testing.T) {
	for _, k := range []EntityKind{KindBranch, KindRegion, KindProduct, KindChannel} {
		assert.True(t, k.Valid(), string(k))
	}
	assert.False(t, EntityKind("desk").Valid())
	assert.False(t, EntityKind("").Valid())
}

func TestEntity_Latest(t *testing.T) {
	e := Entity{ID: "BR001"}
	_, ok := e.Latest()
	assert.False(t, ok)

	e.History = []PeriodMetrics{{Period: "2025-07"}, {Period: "2025-08", PolicyCount: 450}}
	latest, ok := e.Latest()
	require.True(t, ok)
	assert.Equal(t, "2025-08", latest.Period)
	assert.Equal(t, 1, e.PeriodIndex("2025-08"))
	assert.Equal(t, -1, e.PeriodIndex("2024-01"))
}

func TestEntity_CloneDoesNotAlias(t *testing.T) {
	e := Entity{ID: "BR001", History: []PeriodMetrics{{Period: "2025-08", PolicyCount: 450}}}
	clone := e.Clone()
	clone.History[0].PolicyCount = 1

	assert.Equal(t, int64(450), e.History[0].PolicyCount)
}

func TestEntity_SamePeerGroup(t *testing.T) {
	a := &Entity{Region: "North", SizeClass: "Large"}
	b := &Entity{Region: "North", SizeClass: "Large"}
	c := &Entity{Region: "North", SizeClass: "Medium"}

	assert.True(t, a.SamePeerGroup(b))
	assert.False(t, a.SamePeerGroup(c))
}

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		label    string
		expected string
		wantErr  bool
	}{
		{label: "2025-08", expected: "2025-08"},
		{label: " 2025-08 ", expected: "2025-08"},
		{label: "Jan-25", expected: "2025-01"},
		{label: "Sep-2025", expected: "2025-09"},
		{label: "2025/08", wantErr: true},
		{label: "2025-13", wantErr: true},
		{label: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			p, err := ParsePeriod(tt.label)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, p.String())
		})
	}
}

func TestPeriod_Arithmetic(t *testing.T) {
	p := Period{Year: 2025, Month: time.December}

	assert.Equal(t, "2026-01", p.Next().String())
	assert.Equal(t, "2025-09", p.Add(-3).String())
	assert.Equal(t, 4, p.Quarter())
	assert.Equal(t, 1, Period{Year: 2025, Month: time.March}.Quarter())
	assert.Equal(t, 1, p.Next().Index()-p.Index())
}

func TestValidationError(t *testing.T) {
	err := fmt.Errorf("load batch: %w", &ValidationError{EntityID: "BR001", Period: "2025-08", Reason: "negative policy count"})

	assert.True(t, errors.Is(err, ErrValidation))
	assert.False(t, errors.Is(err, ErrNotFound))

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "BR001", verr.EntityID)
	assert.Contains(t, err.Error(), `invalid entity "BR001" period "2025-08"`)

	assert.Equal(t, "invalid batch: empty", (&ValidationError{Reason: "empty"}).Error())
	assert.Equal(t, `invalid entity "X": no history`, (&ValidationError{EntityID: "X", Reason: "no history"}).Error())
}
