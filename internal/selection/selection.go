// Package selection picks which corpus documents an index run covers.
//
// Documents are selected by year range: an id is in the run when its text
// contains the decimal form of a year in the range. The test is a plain
// substring match, so an id carrying an unrelated number that happens to
// equal a year in range is selected too.
package selection

import (
	"fmt"
	"strconv"
	"strings"

	cerrors "github.com/Aman-CERP/corpusctl/internal/errors"
)

// AllYears is the year-range token meaning "use the configured full range".
const AllYears = "all"

// MaxYear is the last year a range may reach.
const MaxYear = 9999

// auxiliaryMarkers flag link records that are never indexed on their own.
var auxiliaryMarkers = []string{"_PREV", "_NEXT"}

// YearRange is an inclusive range of years.
type YearRange struct {
	Start int
	End   int
}

// String returns the range as "<start>-<end>".
func (r YearRange) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// Contains reports whether year lies within the range.
func (r YearRange) Contains(year int) bool {
	return year >= r.Start && year <= r.End
}

// Parse parses "<start>-<end>".
func Parse(s string) (YearRange, error) {
	start, end, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return YearRange{}, invalid(s, nil)
	}

	startYear, err := strconv.Atoi(strings.TrimSpace(start))
	if err != nil {
		return YearRange{}, invalid(s, err)
	}
	endYear, err := strconv.Atoi(strings.TrimSpace(end))
	if err != nil {
		return YearRange{}, invalid(s, err)
	}
	if startYear > endYear {
		return YearRange{}, invalid(s, fmt.Errorf("start year %d is after end year %d", startYear, endYear))
	}
	if endYear > MaxYear {
		return YearRange{}, invalid(s, fmt.Errorf("end year %d is after %d", endYear, MaxYear))
	}

	return YearRange{Start: startYear, End: endYear}, nil
}

// Resolve parses years, substituting all when years is the AllYears token.
func Resolve(years, all string) (YearRange, error) {
	if strings.TrimSpace(years) == AllYears {
		return Parse(all)
	}
	return Parse(years)
}

// SelectDocumentIDs returns the ids to index for r.
//
// Ids come out year by year in ascending order, keeping the input order
// within a year. An id matching several years is returned once, at its
// first matching year. Ids containing "_PREV" or "_NEXT" are never selected.
// Years after MaxYear are not scanned.
func SelectDocumentIDs(ids []string, r YearRange) []string {
	candidates := make([]string, 0, len(ids))
	for _, id := range ids {
		if !isAuxiliary(id) {
			candidates = append(candidates, id)
		}
	}

	seen := make(map[string]struct{}, len(candidates))
	var selected []string
	for year := r.Start; year <= min(r.End, MaxYear); year++ {
		needle := strconv.Itoa(year)
		for _, id := range candidates {
			if _, ok := seen[id]; ok {
				continue
			}
			if strings.Contains(id, needle) {
				seen[id] = struct{}{}
				selected = append(selected, id)
			}
		}
	}
	return selected
}

func isAuxiliary(id string) bool {
	for _, marker := range auxiliaryMarkers {
		if strings.Contains(id, marker) {
			return true
		}
	}
	return false
}

func invalid(s string, cause error) *cerrors.CorpusError {
	return cerrors.New(cerrors.ErrCodeInvalidYearRange,
		fmt.Sprintf("invalid year range %q", s), cause).
		WithSuggestion("use <startYear>-<endYear>, e.g. 1987-1999, or \"all\"")
}
