// Package diag pulls source locations out of YAML diagnostic blocks and
// renders them through an external preview program.
package diag

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/itchyny/gojq"
	"gopkg.in/yaml.v3"
)

// DefaultQuery finds node-tap and tape style locations.
const DefaultQuery = ".failure.location, .at"

const (
	// maxValues caps how many strings one evaluation may produce.
	maxValues = 64
	// maxDepth caps how far nested arrays are flattened.
	maxDepth = 32

	evalTimeout = time.Second
)

// Query is a compiled jq expression run over a YAML diagnostic.
type Query struct {
	source string
	code   *gojq.Code
}

// Compile parses a query expression
func Compile(expr string) (*Query, error) {
	parsed, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("compile query %q: %w", expr, err)
	}
	code, err := gojq.Compile(parsed)
	if err != nil {
		return nil, fmt.Errorf("compile query %q: %w", expr, err)
	}
	return &Query{source: expr, code: code}, nil
}

// MustCompile is like Compile but panics on a malformed expression.
func MustCompile(expr string) *Query {
	q, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return q
}

func (q *Query) String() string {
	return q.source
}

// Eval runs the query over raw YAML and returns every string it emits, in
// order. Invalid YAML, a jq runtime error or a timeout ends the output early.
func (q *Query) Eval(raw string) []string {
	var doc any
	if err := yaml.Unmarshal([]byte(raw), &doc); err != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), evalTimeout)
	defer cancel()

	var out []string
	iter := q.code.RunWithContext(ctx, normalize(doc))
	for len(out) < maxValues {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if _, isErr := v.(error); isErr {
			break
		}
		out = appendValues(out, v, 0)
	}
	if len(out) > maxValues {
		out = out[:maxValues]
	}
	return out
}

// normalize turns decoded YAML into the value types gojq accepts.
func normalize(v any) any {
	switch v := v.(type) {
	case map[string]any:
		for k, e := range v {
			v[k] = normalize(e)
		}
		return v
	case map[any]any:
		m := make(map[string]any, len(v))
		for k, e := range v {
			m[fmt.Sprint(k)] = normalize(e)
		}
		return m
	case []any:
		for i, e := range v {
			v[i] = normalize(e)
		}
		return v
	case nil, bool, int, float64, string:
		return v
	case int64:
		return int(v)
	case uint64:
		if v > math.MaxInt {
			return float64(v)
		}
		return int(v)
	case time.Time:
		return v.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(v)
	}
}

// appendValues renders an emitted value: scalars as text, {file, line}
// objects as file:line, arrays flattened.
func appendValues(out []string, v any, depth int) []string {
	if depth > maxDepth {
		return out
	}
	switch v := v.(type) {
	case []any:
		for _, e := range v {
			out = appendValues(out, e, depth+1)
		}
		return out
	case map[string]any:
		file, line := scalarText(v["file"]), scalarText(v["line"])
		if file == "" || line == "" {
			return out
		}
		loc := file + ":" + line
		if col := scalarText(v["column"]); col != "" {
			loc += ":" + col
		}
		return append(out, loc)
	}
	if s := scalarText(v); s != "" {
		out = append(out, s)
	}
	return out
}

func scalarText(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case fmt.Stringer:
		// *big.Int from gojq arithmetic
		return v.String()
	}
	return ""
}
