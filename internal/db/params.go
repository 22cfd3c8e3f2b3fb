package db

import (
	"fmt"
	"regexp"
	"strings"
)

// Params holds the values for the named parameters of a SQL statement,
// keyed by the placeholder identifier without the leading colon.
type Params map[string]any

var namedParamRegexp = regexp.MustCompile(`:[A-Za-z0-9_]+`)

// ExpandNamedParams rewrites a SQL template containing `:name`
// placeholders into backend-ready text. The scan is purely lexical, no
// SQL parsing or validation happens.
//
// The substitution callback is invoked once per occurrence in
// left-to-right order, so a name that appears N times is substituted N
// times independently (a positional backend can bind the same value to N
// distinct positions). A colon not followed by identifier characters is
// left untouched.
func ExpandNamedParams(query string, substitute func(name string) (string, error)) (string, error) {
	var b strings.Builder
	last := 0

	for _, loc := range namedParamRegexp.FindAllStringIndex(query, -1) {
		b.WriteString(query[last:loc[0]])

		name := query[loc[0]+1 : loc[1]]
		replacement, err := substitute(name)
		if err != nil {
			return "", fmt.Errorf("could not substitute parameter %q: %w", name, err)
		}
		b.WriteString(replacement)

		last = loc[1]
	}
	b.WriteString(query[last:])

	return b.String(), nil
}
