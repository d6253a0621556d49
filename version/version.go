/*package version controls the version of snaptools and checks config files
against it.*/
package version

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// SourceVersion is the semantic version number of the source code.
const SourceVersion = "0.4.0"

var errFormat = errors.New("Version string does not take the form of " +
	"three period-separated non-negative numbers")

// Version is a parsed semantic version number.
type Version struct {
	Major, Minor, Patch int
}

func (v Version) String() string {
	return strconv.Itoa(v.Major) + "." + strconv.Itoa(v.Minor) + "." +
		strconv.Itoa(v.Patch)
}

// Parse parses a semantic version number string and returns an error if
// the string is invalid.
func Parse(s string) (Version, error) {
	toks := strings.Split(s, ".")
	if len(toks) != 3 { return Version{}, errFormat }

	var nums [3]int
	for i := range toks {
		n, err := strconv.Atoi(toks[i])
		if err != nil || n < 0 { return Version{}, errFormat }
		nums[i] = n
	}

	return Version{nums[0], nums[1], nums[2]}, nil
}

// Later returns true if s1 represents a later version of the source than
// s2. An error is returned if either is invalid.
func Later(s1, s2 string) (bool, error) {
	v1, err := Parse(s1)
	if err != nil { return false, err }
	v2, err := Parse(s2)
	if err != nil { return false, err }

	switch {
	case v1.Major != v2.Major:
		return v1.Major > v2.Major, nil
	case v1.Minor != v2.Minor:
		return v1.Minor > v2.Minor, nil
	default:
		return v1.Patch > v2.Patch, nil
	}
}

// Check returns an error if a config file written for the version s cannot
// be read by this source. Config files only need to agree on the major and
// minor numbers.
func Check(s string) error {
	v, err := Parse(s)
	if err != nil {
		return errors.Wrap(err, "I couldn't parse the 'Version' variable")
	}
	src, _ := Parse(SourceVersion)
	if v.Major != src.Major || v.Minor != src.Minor {
		return errors.Errorf("The 'Version' variable is set to %s, but the "+
			"version of the source is %s", s, SourceVersion)
	}
	return nil
}
