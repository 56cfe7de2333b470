package series

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_SortsYearsAscending(t *testing.T) {
	s, err := New("us", []string{"Total"}, map[int]map[string]float64{
		2025: {"Total": 900},
		2015: {"Total": 100},
		2020: {"Total": 400},
	})
	require.NoError(t, err)

	assert.Equal(t, []int{2015, 2020, 2025}, s.Years())
	assert.Equal(t, 3, s.Len())

	values, err := s.Column("Total")
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 400, 900}, values)
}

func TestNew_RejectsInconsistentRecords(t *testing.T) {
	tests := []struct {
		name    string
		columns []string
		rows    map[int]map[string]float64
	}{
		{
			name:    "missing column in one year",
			columns: []string{"Total", "Military"},
			rows: map[int]map[string]float64{
				2015: {"Total": 1, "Military": 2},
				2016: {"Total": 1},
			},
		},
		{
			name:    "undeclared column",
			columns: []string{"Total"},
			rows: map[int]map[string]float64{
				2015: {"Other": 1},
			},
		},
		{
			name:    "duplicate column",
			columns: []string{"Total", "Total"},
			rows:    map[int]map[string]float64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New("bad", tt.columns, tt.rows)
			assert.Nil(t, s)
			assert.True(t, errors.Is(err, ErrDataFormat), "got %v", err)
		})
	}
}

func TestValueAt_MissingYearOrColumn(t *testing.T) {
	s, err := New("cn", []string{"Total"}, map[int]map[string]float64{2015: {"Total": 900}})
	require.NoError(t, err)

	v, err := s.ValueAt(2015, "Total")
	require.NoError(t, err)
	assert.Equal(t, 900.0, v)

	_, err = s.ValueAt(2016, "Total")
	assert.ErrorIs(t, err, ErrInsufficientData)
	assert.Contains(t, err.Error(), "2016")

	_, err = s.ValueAt(2015, "Citations")
	assert.ErrorIs(t, err, ErrInsufficientData)
	assert.Contains(t, err.Error(), "Citations")

	_, err = s.Column("Citations")
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestAccessorsReturnCopies(t *testing.T) {
	s, err := New("us", []string{"Total"}, map[int]map[string]float64{2015: {"Total": 1}, 2016: {"Total": 2}})
	require.NoError(t, err)

	years := s.Years()
	years[0] = 1999
	columns := s.Columns()
	columns[0] = "Changed"

	assert.Equal(t, []int{2015, 2016}, s.Years())
	assert.Equal(t, []string{"Total"}, s.Columns())
}

func TestRenameAndScale(t *testing.T) {
	s, err := New("us", []string{"Total_Military_AI_Millions", "DARPA_AI_Millions"}, map[int]map[string]float64{
		2015: {"Total_Military_AI_Millions": 1500, "DARPA_AI_Millions": 200},
		2025: {"Total_Military_AI_Millions": 6900, "DARPA_AI_Millions": 800},
	})
	require.NoError(t, err)

	renamed, err := s.Rename(map[string]string{"Total_Military_AI_Millions": "Total"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Total", "DARPA_AI_Millions"}, renamed.Columns())
	assert.False(t, renamed.HasColumn("Total_Military_AI_Millions"))

	billions := renamed.Scale(0.001)
	v, err := billions.ValueAt(2025, "Total")
	require.NoError(t, err)
	assert.InDelta(t, 6.9, v, 1e-9)

	// the source is untouched
	v, err = s.ValueAt(2025, "Total_Military_AI_Millions")
	require.NoError(t, err)
	assert.Equal(t, 6900.0, v)
}

func TestRename_CollisionIsRejected(t *testing.T) {
	s, err := New("us", []string{"A", "B"}, map[int]map[string]float64{2015: {"A": 1, "B": 2}})
	require.NoError(t, err)

	_, err = s.Rename(map[string]string{"A": "B"})
	assert.ErrorIs(t, err, ErrDataFormat)
}
