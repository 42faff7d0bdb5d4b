package delimited

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want [][]string
	}{
		{
			name: "quoted separator and escaped quote",
			in:   "a;\"b;c\";\"d\"\"e\"\n",
			want: [][]string{{"a", "b;c", "d\"e"}},
		},
		{
			name: "quoted newline stays in one row",
			in:   "title;notes\nPraça;\"line one\nline two\"\n",
			want: [][]string{{"title", "notes"}, {"Praça", "line one\nline two"}},
		},
		{
			name: "last row without newline",
			in:   "a;b\nc;d",
			want: [][]string{{"a", "b"}, {"c", "d"}},
		},
		{
			name: "blank rows dropped",
			in:   "a;b\n\n;\n  ;  \nc;d\n",
			want: [][]string{{"a", "b"}, {"c", "d"}},
		},
		{
			name: "fields trimmed",
			in:   "  a  ;\" b \"\n",
			want: [][]string{{"a", "b"}},
		},
		{
			name: "crlf line endings",
			in:   "a;b\r\nc;d\r\n",
			want: [][]string{{"a", "b"}, {"c", "d"}},
		},
		{
			name: "empty fields kept",
			in:   "a;;c\n",
			want: [][]string{{"a", "", "c"}},
		},
		{
			name: "unterminated quote runs to end",
			in:   "a;\"b\nc",
			want: [][]string{{"a", "b\nc"}},
		},
		{
			name: "empty input",
			in:   "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.in))
		})
	}
}

func TestRecords(t *testing.T) {
	header, records := Records("Title;Parish;Tags\nObras;lumiar;\"Mobilidade, Finanças\"\nSó título\n")

	assert.Equal(t, []string{"title", "parish", "tags"}, header)
	require.Len(t, records, 2)

	assert.Equal(t, 2, records[0].Line)
	assert.Equal(t, "Obras", records[0].Get("title"))
	assert.Equal(t, "Mobilidade, Finanças", records[0].Get("tags"))

	assert.Equal(t, 3, records[1].Line)
	assert.Equal(t, "Só título", records[1].Get("title"))
	assert.Equal(t, "", records[1].Get("parish"))
}

func TestRecordsEmpty(t *testing.T) {
	header, records := Records("\n\n")
	assert.Nil(t, header)
	assert.Empty(t, records)
}
