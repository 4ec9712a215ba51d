package selection

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/Aman-CERP/corpusctl/internal/errors"
)

func TestSelectDocumentIDs_ExcludesLinksAndOutOfRange(t *testing.T) {
	// Given: a PREV link record and an out-of-range document
	ids := []string{"1992_doc", "1992_doc_PREV", "1995_doc"}

	// When: selecting 1990-1993
	got := SelectDocumentIDs(ids, YearRange{Start: 1990, End: 1993})

	// Then: only the in-range document is kept
	assert.Equal(t, []string{"1992_doc"}, got)
}

func TestSelectDocumentIDs_ExcludesNext(t *testing.T) {
	got := SelectDocumentIDs([]string{"ENCPOS_1991_03_NEXT", "ENCPOS_1991_03"}, YearRange{Start: 1991, End: 1991})

	assert.Equal(t, []string{"ENCPOS_1991_03"}, got)
}

func TestSelectDocumentIDs_OrderedByYearThenInput(t *testing.T) {
	ids := []string{"ENCPOS_1993_01", "ENCPOS_1991_02", "ENCPOS_1993_00", "ENCPOS_1991_01"}

	got := SelectDocumentIDs(ids, YearRange{Start: 1990, End: 1993})

	assert.Equal(t, []string{"ENCPOS_1991_02", "ENCPOS_1991_01", "ENCPOS_1993_01", "ENCPOS_1993_00"}, got)
}

func TestSelectDocumentIDs_LooseSubstringMatch(t *testing.T) {
	// An id embedding an unrelated numeral equal to a year in range is
	// selected: the filter is a substring test, not a date parse.
	ids := []string{"ENCPOS_1850_1992", "report-2000"}

	got := SelectDocumentIDs(ids, YearRange{Start: 1990, End: 2000})

	assert.Equal(t, []string{"ENCPOS_1850_1992", "report-2000"}, got)
}

func TestSelectDocumentIDs_MultiYearIDReturnedOnce(t *testing.T) {
	got := SelectDocumentIDs([]string{"ENCPOS_1990_1991"}, YearRange{Start: 1990, End: 1991})

	assert.Equal(t, []string{"ENCPOS_1990_1991"}, got)
}

func TestSelectDocumentIDs_Empty(t *testing.T) {
	assert.Empty(t, SelectDocumentIDs(nil, YearRange{Start: 1990, End: 1991}))
	assert.Empty(t, SelectDocumentIDs([]string{"ENCPOS_1850_01"}, YearRange{Start: 1990, End: 1991}))
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    YearRange
		wantErr bool
	}{
		{name: "range", in: "1987-1999", want: YearRange{1987, 1999}},
		{name: "single year", in: "1992-1992", want: YearRange{1992, 1992}},
		{name: "spaces", in: " 1987 - 1999 ", want: YearRange{1987, 1999}},
		{name: "no dash", in: "1987", wantErr: true},
		{name: "not numeric", in: "abc-1999", wantErr: true},
		{name: "reversed", in: "1999-1987", wantErr: true},
		{name: "empty", in: "", wantErr: true},
		{name: "last year", in: "9990-9999", want: YearRange{9990, 9999}},
		{name: "past last year", in: "1990-10000", wantErr: true},
		{name: "max int", in: "1990-9223372036854775807", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, cerrors.ErrCodeInvalidYearRange, cerrors.GetCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelectDocumentIDs_UnboundedRangeStops(t *testing.T) {
	// Given: a range built by hand up to the largest int
	r := YearRange{Start: 9998, End: math.MaxInt}

	// When: selecting
	got := SelectDocumentIDs([]string{"ENCPOS_9999_01", "ENCPOS_1900_01"}, r)

	// Then: the scan ends at MaxYear
	assert.Equal(t, []string{"ENCPOS_9999_01"}, got)
}

func TestResolve_AllUsesConfiguredRange(t *testing.T) {
	got, err := Resolve("all", "1849-2019")
	require.NoError(t, err)
	assert.Equal(t, YearRange{1849, 2019}, got)

	got, err = Resolve("1990-1991", "1849-2019")
	require.NoError(t, err)
	assert.Equal(t, YearRange{1990, 1991}, got)
}

func TestYearRange_StringAndContains(t *testing.T) {
	r := YearRange{Start: 1990, End: 1993}

	assert.Equal(t, "1990-1993", r.String())
	assert.True(t, r.Contains(1990))
	assert.True(t, r.Contains(1993))
	assert.False(t, r.Contains(1994))
}
