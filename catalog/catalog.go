/*package catalog writes and reads the whitespace-separated text tables that
snaptools uses for its reports. Tables start with a "# Column contents:"
comment naming each column, followed by one right-aligned row per line.*/
package catalog

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Column is a single named table column. Exactly one of Ints, Floats and
// Strings should be set. Floats are printed with Prec significant digits
// (6 if Prec is zero), or with Prec decimals if Fixed is set.
type Column struct {
	Name    string
	Ints    []int64
	Floats  []float64
	Strings []string
	Prec    int
	Fixed   bool
}

// Len returns the height of the column.
func (c Column) Len() int {
	switch {
	case c.Ints != nil: return len(c.Ints)
	case c.Floats != nil: return len(c.Floats)
	}
	return len(c.Strings)
}

func (c Column) format() []string {
	out := make([]string, c.Len())
	switch {
	case c.Ints != nil:
		for i := range c.Ints { out[i] = strconv.FormatInt(c.Ints[i], 10) }
	case c.Floats != nil:
		prec, verb := c.Prec, "%.*g"
		if prec == 0 && !c.Fixed { prec = 6 }
		if c.Fixed { verb = "%.*f" }
		for i := range c.Floats { out[i] = fmt.Sprintf(verb, prec, c.Floats[i]) }
	default:
		copy(out, c.Strings)
	}

	width := 0
	for i := range out {
		if len(out[i]) > width { width = len(out[i]) }
	}
	for i := range out { out[i] = fmt.Sprintf("%*s", width, out[i]) }
	return out
}

// CommentString returns the header comment describing cols in order.
func CommentString(cols []Column) string {
	tokens := []string{"# Column contents:"}
	for i := range cols {
		tokens = append(tokens, fmt.Sprintf("%s(%d)", cols[i].Name, i))
	}
	return strings.Join(tokens, " ")
}

// FormatCols formats the columns into table rows. All the columns must have
// the same height.
func FormatCols(cols []Column) ([]string, error) {
	if len(cols) == 0 { return []string{}, nil }

	height := cols[0].Len()
	formatted := make([][]string, len(cols))
	for i := range cols {
		if cols[i].Len() != height {
			return nil, errors.Errorf(
				"Column '%s' has %d rows, but column '%s' has %d.",
				cols[i].Name, cols[i].Len(), cols[0].Name, height,
			)
		}
		formatted[i] = cols[i].format()
	}

	lines := make([]string, height)
	tokens := make([]string, len(cols))
	for i := 0; i < height; i++ {
		for j := range formatted { tokens[j] = formatted[j][i] }
		lines[i] = strings.Join(tokens, " ")
	}
	return lines, nil
}

// Write writes the header comment and rows of a table to w.
func Write(w io.Writer, cols []Column) error {
	lines, err := FormatCols(cols)
	if err != nil { return err }

	buf := &bytes.Buffer{}
	fmt.Fprintln(buf, CommentString(cols))
	for _, line := range lines { fmt.Fprintln(buf, line) }
	_, err = w.Write(buf.Bytes())
	return errors.Wrap(err, "I couldn't write the table")
}

// Parse parses the specified columns of a table. Comments start with '#'
// and blank lines are skipped.
func Parse(data []byte, icolIdxs, fcolIdxs, scolIdxs []int) (
	[][]int64, [][]float64, [][]string, error,
) {
	lines := [][]byte{}
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		if comment := bytes.IndexByte(line, '#'); comment != -1 {
			line = line[:comment]
		}
		if len(bytes.TrimSpace(line)) == 0 { continue }
		lines = append(lines, line)
	}

	icols := make([][]int64, len(icolIdxs))
	fcols := make([][]float64, len(fcolIdxs))
	scols := make([][]string, len(scolIdxs))
	for i := range icols { icols[i] = make([]int64, len(lines)) }
	for i := range fcols { fcols[i] = make([]float64, len(lines)) }
	for i := range scols { scols[i] = make([]string, len(lines)) }
	if len(lines) == 0 { return icols, fcols, scols, nil }

	width := len(bytes.Fields(lines[0]))
	var err error
	for i, line := range lines {
		words := bytes.Fields(line)
		if len(words) != width {
			return nil, nil, nil, errors.Errorf(
				"Data (not file) line %d has %d columns, not %d.",
				i+1, len(words), width,
			)
		}

		for j, col := range icolIdxs {
			if col >= width { return nil, nil, nil, columnRangeError(col, width) }
			icols[j][i], err = strconv.ParseInt(string(words[col]), 10, 64)
			if err != nil { return nil, nil, nil, errors.Wrapf(err, "data line %d", i+1) }
		}
		for j, col := range fcolIdxs {
			if col >= width { return nil, nil, nil, columnRangeError(col, width) }
			fcols[j][i], err = strconv.ParseFloat(string(words[col]), 64)
			if err != nil { return nil, nil, nil, errors.Wrapf(err, "data line %d", i+1) }
		}
		for j, col := range scolIdxs {
			if col >= width { return nil, nil, nil, columnRangeError(col, width) }
			scols[j][i] = string(words[col])
		}
	}

	return icols, fcols, scols, nil
}

func columnRangeError(col, width int) error {
	return errors.Errorf(
		"Column %d was requested, but the table only has %d columns.",
		col, width,
	)
}
