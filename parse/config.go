/*package parse reads the config files used by snaptools. A config file starts
with a "[name]" header and then contains one "Key = value" assignment per
line. Keys are case-insensitive, "#" starts a comment and list values are
comma-separated.*/
package parse

import (
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

/////////////////////
// Conversion Code //
/////////////////////

type varType int

const (
	intVar varType = iota
	intsVar
	floatVar
	floatsVar
	stringVar
	stringsVar
	boolVar
	boolsVar
)

func (v varType) String() string {
	switch v {
	case intVar: return "int"
	case intsVar: return "int list"
	case floatVar: return "float"
	case floatsVar: return "float list"
	case stringVar: return "string"
	case stringsVar: return "string list"
	case boolVar: return "bool"
	case boolsVar: return "bool list"
	}
	panic("Impossible")
}

// article returns the indefinite article that goes in front of the type name.
func (v varType) article() string {
	if v.String()[0] == 'i' { return "an" }
	return "a"
}

type conversionFunc func(string) bool

type variable struct {
	name string
	typ  varType
	conv conversionFunc
}

// ConfigVars is the set of variables that a particular type of config file
// can assign to.
type ConfigVars struct {
	name string
	vars []variable
}

func intConv(ptr *int64) conversionFunc {
	return func(s string) bool {
		i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil { return false }
		*ptr = i
		return true
	}
}

func floatConv(ptr *float64) conversionFunc {
	return func(s string) bool {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil { return false }
		*ptr = f
		return true
	}
}

func stringConv(ptr *string) conversionFunc {
	return func(s string) bool {
		*ptr = strings.TrimSpace(s)
		return true
	}
}

func boolConv(ptr *bool) conversionFunc {
	return func(s string) bool {
		b, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil { return false }
		*ptr = b
		return true
	}
}

// strToList splits a comma-separated list. The empty string is the empty
// list.
func strToList(s string) []string {
	if strings.TrimSpace(s) == "" { return nil }
	toks := strings.Split(s, ",")
	for i := range toks { toks[i] = strings.TrimSpace(toks[i]) }
	return toks
}

// listConv builds a list conversion out of a scalar parser. The target is
// only overwritten when every element parses.
func listConv[T any](ptr *[]T, parse func(string) (T, error)) conversionFunc {
	return func(s string) bool {
		toks := strToList(s)
		out := make([]T, 0, len(toks))
		for _, tok := range toks {
			x, err := parse(tok)
			if err != nil { return false }
			out = append(out, x)
		}
		*ptr = out
		return true
	}
}

func intsConv(ptr *[]int64) conversionFunc {
	return listConv(ptr, func(s string) (int64, error) {
		return strconv.ParseInt(s, 10, 64)
	})
}

func floatsConv(ptr *[]float64) conversionFunc {
	return listConv(ptr, func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	})
}

func stringsConv(ptr *[]string) conversionFunc {
	return listConv(ptr, func(s string) (string, error) { return s, nil })
}

func boolsConv(ptr *[]bool) conversionFunc {
	return listConv(ptr, strconv.ParseBool)
}

// NewConfigVars returns an empty variable set for config files with the
// header "[name]".
func NewConfigVars(name string) *ConfigVars {
	return &ConfigVars{name: name}
}

// Name returns the header name of the config file type.
func (vars *ConfigVars) Name() string { return vars.name }

func (vars *ConfigVars) add(name string, typ varType, conv conversionFunc) {
	vars.vars = append(vars.vars, variable{strings.ToLower(name), typ, conv})
}

func (vars *ConfigVars) Int(ptr *int64, name string, value int64) {
	*ptr = value
	vars.add(name, intVar, intConv(ptr))
}

func (vars *ConfigVars) Float(ptr *float64, name string, value float64) {
	*ptr = value
	vars.add(name, floatVar, floatConv(ptr))
}

func (vars *ConfigVars) String(ptr *string, name string, value string) {
	*ptr = value
	vars.add(name, stringVar, stringConv(ptr))
}

func (vars *ConfigVars) Bool(ptr *bool, name string, value bool) {
	*ptr = value
	vars.add(name, boolVar, boolConv(ptr))
}

func (vars *ConfigVars) Ints(ptr *[]int64, name string, value []int64) {
	*ptr = value
	vars.add(name, intsVar, intsConv(ptr))
}

func (vars *ConfigVars) Floats(ptr *[]float64, name string, value []float64) {
	*ptr = value
	vars.add(name, floatsVar, floatsConv(ptr))
}

func (vars *ConfigVars) Strings(ptr *[]string, name string, value []string) {
	*ptr = value
	vars.add(name, stringsVar, stringsConv(ptr))
}

func (vars *ConfigVars) Bools(ptr *[]bool, name string, value []bool) {
	*ptr = value
	vars.add(name, boolsVar, boolsConv(ptr))
}

// lookup returns the index of the variable with the given (lower-case) name
// or -1.
func (vars *ConfigVars) lookup(name string) int {
	for i := range vars.vars {
		if vars.vars[i].name == name { return i }
	}
	return -1
}

//////////////////
// Parsing Code //
//////////////////

// ReadConfig reads the config file fname into vars.
func ReadConfig(fname string, vars *ConfigVars) error {
	bs, err := os.ReadFile(fname)
	if err != nil {
		return errors.Wrapf(err, "I couldn't read the config file %s", fname)
	}
	return readText(fname, string(bs), vars)
}

// readText parses the contents of a config file. fname is only used in
// error messages.
func readText(fname, text string, vars *ConfigVars) error {
	lines, lineNums := removeComments(strings.Split(text, "\n"))
	for i := range lineNums { lineNums[i]++ }

	if len(lines) == 0 || lines[0] != "["+vars.name+"]" {
		return errors.Errorf(
			"I expected the config file %s to have the header "+
				"[%s] at the top, but didn't find it.", fname, vars.name,
		)
	}
	lines, lineNums = lines[1:], lineNums[1:]

	names, vals, errLine := associationList(lines)
	if errLine != -1 {
		return errors.Errorf(
			"I could not parse line %d of the config file %s because it "+
				"did not take the form of a variable assignment.",
			lineNums[errLine], fname,
		)
	}

	for i := range names {
		if vars.lookup(names[i]) == -1 {
			return errors.Errorf(
				"Line %d of the config file %s assigns a value to the "+
					"variable '%s', but config files of type %s don't have "+
					"that variable.", lineNums[i], fname, names[i], vars.name,
			)
		}
	}

	if i, j := checkDuplicateNames(names); i != -1 {
		return errors.Errorf(
			"Lines %d and %d of the config file %s both assign a value to "+
				"the variable '%s'.", lineNums[i], lineNums[j], fname, names[i],
		)
	}

	for i := range names {
		v := vars.vars[vars.lookup(names[i])]
		if !v.conv(vals[i]) {
			return errors.Errorf(
				"I could not parse line %d of the config file %s because "+
					"'%s' expects values of type %s and '%s' cannot be "+
					"converted to %s %s.", lineNums[i], fname, v.name,
				v.typ, vals[i], v.typ.article(), v.typ,
			)
		}
	}

	return nil
}

// removeComments strips comments and blank lines and returns the remaining
// lines along with their (zero-indexed) line numbers.
func removeComments(lines []string) ([]string, []int) {
	out, lineNums := []string{}, []int{}
	for i, line := range lines {
		if comment := strings.Index(line, "#"); comment != -1 {
			line = line[:comment]
		}
		line = strings.TrimSpace(line)
		if len(line) == 0 { continue }
		out = append(out, line)
		lineNums = append(lineNums, i)
	}
	return out, lineNums
}

// associationList splits "name = value" lines. The returned int is the index
// of the first malformed line, or -1.
func associationList(lines []string) ([]string, []string, int) {
	names, vals := []string{}, []string{}
	for i := range lines {
		eq := strings.Index(lines[i], "=")
		if eq == -1 { return nil, nil, i }
		name := strings.ToLower(strings.TrimSpace(lines[i][:eq]))
		if len(name) == 0 { return nil, nil, i }
		names = append(names, name)
		vals = append(vals, strings.TrimSpace(lines[i][eq+1:]))
	}
	return names, vals, -1
}

func checkDuplicateNames(names []string) (int, int) {
	for i := range names {
		for j := i + 1; j < len(names); j++ {
			if names[i] == names[j] { return i, j }
		}
	}
	return -1, -1
}
