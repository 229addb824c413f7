package commands

import (
	"regexp"
	"strconv"
	"strings"
)

var realPattern = regexp.MustCompile(`^[+-]?(\d+\.\d*|\.\d+|\d+)([eE][+-]?\d+)?$`)

// ParseParam types a command-line parameter: NULL, integer, real, otherwise
// text. A leading backslash forces text, so `\42` binds the string "42".
func ParseParam(s string) any {
	if strings.HasPrefix(s, `\`) {
		return s[1:]
	}
	if strings.EqualFold(s, "NULL") {
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if realPattern.MatchString(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return s
}

// ParseParams types every parameter with ParseParam.
func ParseParams(args []string) []any {
	params := make([]any, len(args))
	for i, a := range args {
		params[i] = ParseParam(a)
	}
	return params
}
