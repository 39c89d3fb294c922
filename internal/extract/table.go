package extract

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/afl-stats/internal/record"
)

// ErrNoTable is returned by page parsers when a document that should hold
// data contains no matching table.
var ErrNoTable = errors.New("no matching table")

// Predicate selects tables within a document.
type Predicate func(table *goquery.Selection) bool

// Parse reads an HTML document.
func Parse(r io.Reader) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	return doc, nil
}

// Tables yields the matching tables of a document with their ordinal among
// all tables.
func Tables(doc *goquery.Document, pred Predicate) iter.Seq2[int, *goquery.Selection] {
	return func(yield func(int, *goquery.Selection) bool) {
		doc.Find("table").EachWithBreak(func(i int, table *goquery.Selection) bool {
			if pred != nil && !pred(table) {
				return true
			}
			return yield(i, table)
		})
	}
}

// Rows yields the data rows of every matching table, in document order.
// A document without a matching table yields nothing.
func Rows(doc *goquery.Document, pred Predicate, source string) iter.Seq[record.RawRow] {
	return func(yield func(record.RawRow) bool) {
		for i, table := range Tables(doc, pred) {
			for row := range TableRows(table, i, source) {
				if !yield(row) {
					return
				}
			}
		}
	}
}

// TableRows yields the body rows of one table. Rows of nested tables, header
// and footer rows, and rows without td cells are skipped.
func TableRows(table *goquery.Selection, index int, source string) iter.Seq[record.RawRow] {
	return func(yield func(record.RawRow) bool) {
		n := 0
		for _, tr := range ownRows(table).EachIter() {
			if tr.ParentFiltered("thead, tfoot").Length() > 0 {
				continue
			}
			tds := tr.ChildrenFiltered("td")
			if tds.Length() == 0 {
				continue
			}
			cells := make([]string, 0, tds.Length())
			tds.Each(func(_ int, td *goquery.Selection) {
				cells = append(cells, CellText(td))
			})
			row := record.RawRow{Cells: cells, Table: index, Row: n, Source: source}
			n++
			if !yield(row) {
				return
			}
		}
	}
}

// ownRows returns the rows that belong to table itself rather than to a
// table nested inside it.
func ownRows(table *goquery.Selection) *goquery.Selection {
	return table.Find("tr").FilterFunction(func(_ int, tr *goquery.Selection) bool {
		return tr.Closest("table").IsSelection(table)
	})
}

// CellText returns the text of a selection with whitespace collapsed.
func CellText(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}

// HeaderColspan matches tables with a header cell spanning n columns.
func HeaderColspan(n int) Predicate {
	selector := fmt.Sprintf(`th[colspan="%d"]`, n)
	return func(table *goquery.Selection) bool {
		return table.Find(selector).Length() > 0
	}
}

// HasClass matches tables carrying the given class.
func HasClass(class string) Predicate {
	return func(table *goquery.Selection) bool {
		return table.HasClass(class)
	}
}

// ContainsText matches tables whose text contains s.
func ContainsText(s string) Predicate {
	return func(table *goquery.Selection) bool {
		return strings.Contains(table.Text(), s)
	}
}

// Innermost matches tables that do not contain other tables.
func Innermost() Predicate {
	return func(table *goquery.Selection) bool {
		return table.Find("table").Length() == 0
	}
}

// NthWithAttr matches the n-th (0-based) table carrying attr=value.
func NthWithAttr(n int, attr, value string) Predicate {
	selector := fmt.Sprintf(`table[%s=%q]`, attr, value)
	return func(table *goquery.Selection) bool {
		root := table.Parents().Last()
		if root.Length() == 0 {
			return false
		}
		return root.Find(selector).IndexOfSelection(table) == n
	}
}

// And matches tables accepted by every predicate.
func And(preds ...Predicate) Predicate {
	return func(table *goquery.Selection) bool {
		for _, p := range preds {
			if !p(table) {
				return false
			}
		}
		return true
	}
}

// Problem describes a row or field that could not be used as-is.
// Dropped is false when the record was kept with reduced confidence.
type Problem struct {
	Source  string
	Table   int
	Row     int
	Dropped bool
	Err     error
}

func (p Problem) Error() string {
	return fmt.Sprintf("%s table %d row %d: %v", p.Source, p.Table, p.Row, p.Err)
}

func (p Problem) Unwrap() error {
	return p.Err
}

func dropped(row record.RawRow, err error) Problem {
	return Problem{Source: row.Source, Table: row.Table, Row: row.Row, Dropped: true, Err: err}
}

func warning(row record.RawRow, err error) Problem {
	return Problem{Source: row.Source, Table: row.Table, Row: row.Row, Err: err}
}
