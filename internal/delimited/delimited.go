// Package delimited reads the semicolon-separated files produced by
// spreadsheet exports of initiative lists.
//
// Fields may be wrapped in double quotes to carry semicolons or line breaks.
// Inside a quoted section a doubled quote ("") is a literal quote. Every
// field is trimmed of surrounding whitespace, rows made only of empty fields
// are dropped, and a final row without a trailing newline is still returned.
package delimited

import (
	"strings"
)

const Separator = ';'

type state int

const (
	outside state = iota
	inside
)

// Parse splits text into rows of trimmed fields. It never fails: an
// unterminated quote simply runs to the end of the input.
func Parse(text string) [][]string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	runes := []rune(text)

	var (
		rows  [][]string
		row   []string
		field strings.Builder
		st    = outside
	)

	endField := func() {
		row = append(row, strings.TrimSpace(field.String()))
		field.Reset()
	}
	endRow := func() {
		endField()
		if !blank(row) {
			rows = append(rows, row)
		}
		row = nil
	}

	for i := 0; i < len(runes); i++ {
		c := runes[i]

		if st == inside {
			switch {
			case c == '"' && i+1 < len(runes) && runes[i+1] == '"':
				field.WriteRune('"')
				i++
			case c == '"':
				st = outside
			default:
				field.WriteRune(c)
			}
			continue
		}

		switch c {
		case '"':
			st = inside
		case Separator:
			endField()
		case '\n':
			endRow()
		default:
			field.WriteRune(c)
		}
	}

	if len(row) > 0 || field.Len() > 0 {
		endRow()
	}

	return rows
}

func blank(row []string) bool {
	for _, f := range row {
		if f != "" {
			return false
		}
	}
	return true
}

// Records parses text and pairs every data row with the header row. Header
// names are lower-cased. Missing trailing fields map to "", extra fields are
// ignored. The returned line numbers are 1-based row positions in the parsed
// output, counting the header as row 1.
func Records(text string) ([]string, []Record) {
	rows := Parse(text)
	if len(rows) == 0 {
		return nil, nil
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.ToLower(h)
	}

	records := make([]Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		fields := make(map[string]string, len(header))
		for j, name := range header {
			if j < len(row) {
				fields[name] = row[j]
			} else {
				fields[name] = ""
			}
		}
		records = append(records, Record{Line: i + 2, Fields: fields})
	}

	return header, records
}

type Record struct {
	Line   int
	Fields map[string]string
}

func (r Record) Get(name string) string {
	return r.Fields[name]
}
