package compose

import (
	"regexp"
	"strings"
)

// Variable is one ordered (name, value) substitution pair.
type Variable struct {
	Name  string
	Value string
}

// defaultPattern matches ${NAME:-default} occurrences that survived the
// explicit substitution pass, capturing the default text.
var defaultPattern = regexp.MustCompile(`\$\{[A-Za-z_][A-Za-z0-9_]*:-[^}]*\}`)

// Substitute applies compose-style variable substitution to raw manifest
// text, before parsing. Each pair replaces every ${NAME} and
// ${NAME:-anything} occurrence with its value, in the given order. Any
// ${X:-default} pattern still present afterwards collapses to its literal
// default; the default text is inserted verbatim, so a default containing
// "$" is never re-substituted. A ${NAME} with no value and no default is
// left untouched.
func Substitute(text string, vars []Variable) string {
	for _, v := range vars {
		p := regexp.MustCompile(`\$\{` + regexp.QuoteMeta(v.Name) + `(:-[^}]*)?\}`)
		text = p.ReplaceAllLiteralString(text, v.Value)
	}
	return defaultPattern.ReplaceAllStringFunc(text, func(m string) string {
		_, def, _ := strings.Cut(m[2:len(m)-1], ":-")
		return def
	})
}
