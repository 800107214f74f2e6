package export

import (
	"bufio"
	"io"
	"strings"
)

const bom = "\ufeff"

// WriteCSV writes the table as UTF-8 with a leading byte-order mark. Rows are
// joined by "\n" with no trailing newline.
func WriteCSV(w io.Writer, t Table) error {
	bw := bufio.NewWriter(w)
	_, _ = bw.WriteString(bom)
	writeRow(bw, t.Header)
	for _, row := range t.Rows {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = CellString(c)
		}
		_ = bw.WriteByte('\n')
		writeRow(bw, cells)
	}
	return bw.Flush()
}

// bufio.Writer keeps the first error and returns it from Flush.
func writeRow(w *bufio.Writer, cells []string) {
	for i, c := range cells {
		if i > 0 {
			_ = w.WriteByte(',')
		}
		_, _ = w.WriteString(EscapeCell(c))
	}
}

// EscapeCell quotes a cell holding a comma, a quote or a line break and doubles
// its quotes.
func EscapeCell(s string) string {
	if !strings.ContainsAny(s, ",\"\n\r") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
