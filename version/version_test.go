package version

import (
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		s     string
		v     Version
		valid bool
	}{
		{"0.0.0", Version{0, 0, 0}, true},
		{"1.02.3", Version{1, 2, 3}, true},
		{"", Version{}, false},
		{"0", Version{}, false},
		{"0.0", Version{}, false},
		{"0.0.0.0", Version{}, false},
		{"0.-1.0", Version{}, false},
		{"a.b.c", Version{}, false},
	}

	for i := range tests {
		v, err := Parse(tests[i].s)
		if err != nil {
			if tests[i].valid {
				t.Errorf("Expected Parse('%s') to be valid, but it gave an "+
					"error.", tests[i].s)
			}
		} else {
			if !tests[i].valid {
				t.Errorf("Expected Parse('%s') to give an error, but it "+
					"doesn't.", tests[i].s)
			}
			if v != tests[i].v {
				t.Errorf("Parse('%s') parsed to %s.", tests[i].s, v)
			}
		}
	}
}

func TestLater(t *testing.T) {
	tests := []struct {
		s1, s2       string
		later, valid bool
	}{
		{"0.0.0", "0.0", false, false},
		{"0.0.0", "0.0.0", false, true},
		{"0.0.1", "0.0.0", true, true},
		{"0.1.0", "0.0.0", true, true},
		{"1.0.0", "0.0.0", true, true},
		{"0.0.0", "0.0.1", false, true},
		{"0.0.0", "0.1.0", false, true},
		{"0.0.0", "1.0.0", false, true},
		{"2.13.7", "2.12.19", true, true},
		{"2.12.19", "2.13.7", false, true},
	}

	for i := range tests {
		later, err := Later(tests[i].s1, tests[i].s2)
		if err == nil && !tests[i].valid {
			t.Errorf("Expected Later('%s', %s) to return an error, but it "+
				"didn't.", tests[i].s1, tests[i].s2)
		} else if err != nil && tests[i].valid {
			t.Errorf("Did not expect Later('%s', '%s') to return an error, "+
				"but it did.", tests[i].s1, tests[i].s2)
		} else if later != tests[i].later {
			t.Errorf("Later('%s', '%s') returned %v", tests[i].s1,
				tests[i].s2, later)
		}
	}
}

func TestCheck(t *testing.T) {
	src, _ := Parse(SourceVersion)
	patched := Version{src.Major, src.Minor, src.Patch + 7}
	bumped := Version{src.Major, src.Minor + 1, 0}

	if err := Check(SourceVersion); err != nil {
		t.Errorf("Check(%s) gave error: %s", SourceVersion, err)
	}
	if err := Check(patched.String()); err != nil {
		t.Errorf("Check(%s) gave error: %s", patched, err)
	}
	if err := Check(bumped.String()); err == nil {
		t.Errorf("Expected Check(%s) to fail.", bumped)
	}
	if err := Check("meow"); err == nil {
		t.Errorf("Expected Check('meow') to fail.")
	}
}
