package query

import (
	"errors"
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Error kinds. Match them with errors.Is.
var (
	ErrInvalidAggregateContext  = errors.New("invalid aggregate context")
	ErrHavingWithoutGroup       = errors.New("HAVING without GROUP BY")
	ErrUnknownOperator          = errors.New("unknown operator")
	ErrMalformedExpression      = errors.New("malformed expression")
	ErrInvalidSortOrder         = errors.New("invalid sort order")
	ErrUnknownAggregateFunction = errors.New("unknown aggregate function")
	ErrUnknownSource            = errors.New("unknown source")
	ErrInvalidLimit             = errors.New("invalid LIMIT parameter")
	ErrEmptyAggregate           = errors.New("aggregate over empty input")
	ErrInvalidOperand           = errors.New("invalid operand")
)

// Error describes a failed query with enough context for a caller to point
// at the offending clause and token.
type Error struct {
	Kind       error  // One of the Err* sentinels
	Clause     string // WHERE, HAVING, ORDER BY, LIMIT, ... when known
	Token      string // Offending operator, aggregate, source or value
	Suggestion string // Closest known token, if any
	Msg        string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Msg)
	if e.Suggestion != "" {
		fmt.Fprintf(&b, " (did you mean %s?)", e.Suggestion)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, clause, token, format string, args ...interface{}) *Error {
	return &Error{
		Kind:   kind,
		Clause: clause,
		Token:  token,
		Msg:    fmt.Sprintf(format, args...),
	}
}

// maxSuggestionDistance bounds how different a suggestion may be.
const maxSuggestionDistance = 3

// suggest returns the known name closest to token, or "" when nothing is
// reasonably close.
func suggest(token string, known []string) string {
	best, bestDist := "", maxSuggestionDistance+1
	for _, name := range known {
		d := levenshtein.ComputeDistance(strings.ToUpper(token), strings.ToUpper(name))
		if d < bestDist || (d == bestDist && name < best) {
			best, bestDist = name, d
		}
	}
	return best
}
