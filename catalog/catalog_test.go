package catalog

import (
	"bytes"
	"testing"
)

func TestCommentString(t *testing.T) {
	tests := []struct {
		names []string
		out   string
	}{
		{[]string{}, "# Column contents:"},
		{[]string{"A"}, "# Column contents: A(0)"},
		{[]string{"Snapshot", "Redshift"},
			"# Column contents: Snapshot(0) Redshift(1)"},
	}

	for i, test := range tests {
		cols := make([]Column, len(test.names))
		for j := range cols { cols[j].Name = test.names[j] }
		if out := CommentString(cols); out != test.out {
			t.Errorf("%d) Expected '%s', got '%s'.", i, test.out, out)
		}
	}
}

func TestFormatCols(t *testing.T) {
	cols := []Column{
		{Name: "Snapshot", Strings: []string{"snap_0000.hdf5", "snap_12.hdf5"}},
		{Name: "Index", Ints: []int64{0, 12}},
		{Name: "Redshift", Floats: []float64{127, 0.5}, Prec: 3},
	}
	lines, err := FormatCols(cols)
	if err != nil {
		t.Fatalf("FormatCols failed: %s", err.Error())
	}

	exp := []string{
		"snap_0000.hdf5  0 127",
		"  snap_12.hdf5 12 0.5",
	}
	if len(lines) != len(exp) {
		t.Fatalf("Expected %d lines, got %d.", len(exp), len(lines))
	}
	for i := range exp {
		if lines[i] != exp[i] {
			t.Errorf("%d) Expected '%s', got '%s'.", i, exp[i], lines[i])
		}
	}

	cols[1].Ints = []int64{1}
	if _, err := FormatCols(cols); err == nil {
		t.Errorf("Expected FormatCols to fail on columns of unequal height.")
	}
}

func TestFormatFixed(t *testing.T) {
	cols := []Column{{Name: "z", Floats: []float64{0.123, 12}, Prec: 2, Fixed: true}}
	lines, err := FormatCols(cols)
	if err != nil {
		t.Fatalf("FormatCols failed: %s", err.Error())
	}
	exp := []string{" 0.12", "12.00"}
	for i := range exp {
		if lines[i] != exp[i] {
			t.Errorf("%d) Expected '%s', got '%s'.", i, exp[i], lines[i])
		}
	}
}

func TestWriteParse(t *testing.T) {
	cols := []Column{
		{Name: "Snapshot", Strings: []string{"a.hdf5", "b.hdf5", "c.hdf5"}},
		{Name: "Count", Ints: []int64{100, 0, 7}},
		{Name: "Redshift", Floats: []float64{3.25, 1, 0}},
	}

	buf := &bytes.Buffer{}
	if err := Write(buf, cols); err != nil {
		t.Fatalf("Write failed: %s", err.Error())
	}

	icols, fcols, scols, err := Parse(buf.Bytes(), []int{1}, []int{2}, []int{0})
	if err != nil {
		t.Fatalf("Parse failed: %s", err.Error())
	}
	for i := 0; i < 3; i++ {
		if icols[0][i] != cols[1].Ints[i] || fcols[0][i] != cols[2].Floats[i] ||
			scols[0][i] != cols[0].Strings[i] {
			t.Errorf("Row %d read back as (%s, %d, %g).",
				i, scols[0][i], icols[0][i], fcols[0][i])
		}
	}
}

func TestParseErrors(t *testing.T) {
	tests := []string{
		"1 2\n3\n",
		"1 meow\n",
		"1 2\n",
	}
	idxs := [][]int{{1}, {1}, {5}}

	for i := range tests {
		if _, _, _, err := Parse([]byte(tests[i]), idxs[i], nil, nil); err == nil {
			t.Errorf("%d) Expected Parse to fail on %q.", i, tests[i])
		}
	}

	icols, _, _, err := Parse([]byte("# only a comment\n\n"), []int{0}, nil, nil)
	if err != nil || len(icols[0]) != 0 {
		t.Errorf("Parse of an empty table gave %v, %v.", icols, err)
	}
}
