// Package metadata builds the per-document metadata table from the corpus's
// tab-separated metadata file.
package metadata

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	cerrors "github.com/Aman-CERP/corpusctl/internal/errors"
)

// IDColumn is the column whose value keys the table.
const IDColumn = "id"

// Record maps a column name to its value: a string, an int, or nil for an
// empty field.
type Record map[string]any

// Table maps document ids to their records. It is built once per run and
// only read afterwards.
type Table struct {
	records map[string]Record
	ids     []string
}

// Get returns the record for id.
func (t *Table) Get(id string) (Record, bool) {
	r, ok := t.records[id]
	return r, ok
}

// IDs returns the document ids in the order they first appear in the file.
func (t *Table) IDs() []string {
	return slices.Clone(t.ids)
}

// Len returns the number of documents in the table.
func (t *Table) Len() int {
	return len(t.ids)
}

// Load parses raw tab-separated metadata. The first line is the header;
// each following line is one document, and a blank line is malformed.
// Only the columns listed in indexable are kept, and the id column is moved
// out of the record into the table key. A later row with an id already seen replaces the earlier
// record.
func Load(raw string, indexable []string) (*Table, error) {
	if !slices.Contains(indexable, IDColumn) {
		return nil, cerrors.MalformedMetadata(
			fmt.Sprintf("column %q is not configured as indexable", IDColumn), nil)
	}

	lines := splitLines(raw)
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		return nil, cerrors.MalformedMetadata("metadata file has no header", nil)
	}

	header := strings.Split(lines[0], "\t")
	if !slices.Contains(header, IDColumn) {
		return nil, cerrors.MalformedMetadata(
			fmt.Sprintf("metadata header has no %q column", IDColumn), nil)
	}

	keep := make(map[string]bool, len(indexable))
	for _, col := range indexable {
		keep[col] = true
	}

	table := &Table{records: make(map[string]Record)}
	for n, line := range lines[1:] {
		lineNo := n + 2

		fields := strings.Split(line, "\t")
		if len(fields) < len(header) {
			return nil, cerrors.MalformedMetadata(
				fmt.Sprintf("line %d has %d fields, header has %d", lineNo, len(fields), len(header)), nil).
				WithDetail("line", strconv.Itoa(lineNo))
		}

		var id string
		record := make(Record)
		for i, col := range header {
			if !keep[col] {
				continue
			}
			if col == IDColumn {
				id = fields[i]
				continue
			}
			record[col] = coerce(fields[i])
		}

		if id == "" {
			return nil, cerrors.MalformedMetadata(fmt.Sprintf("line %d has an empty id", lineNo), nil).
				WithDetail("line", strconv.Itoa(lineNo))
		}

		if _, seen := table.records[id]; !seen {
			table.ids = append(table.ids, id)
		}
		table.records[id] = record
	}

	return table, nil
}

// coerce maps "" to nil, integer text to int, and leaves anything else as
// the original string.
func coerce(field string) any {
	if field == "" {
		return nil
	}
	if n, err := strconv.Atoi(strings.TrimSpace(field)); err == nil {
		return n
	}
	return field
}

// splitLines splits on \n, \r\n and \r, dropping the empty tail after a
// final line break.
func splitLines(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")
	raw = strings.TrimSuffix(raw, "\n")
	if raw == "" {
		return nil
	}
	return strings.Split(raw, "\n")
}
