// Package validate checks generated dashboards and rules: every PromQL
// expression must parse and reference only known metric names.
package validate

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/prometheus/prometheus/promql/parser"
)

// Result collects validation findings. Errors fail generation; warnings
// are reported only.
type Result struct {
	Errors   []string
	Warnings []string
}

// Ok reports whether no errors were found.
func (r Result) Ok() bool {
	return len(r.Errors) == 0
}

func (r *Result) merge(o Result) {
	r.Errors = append(r.Errors, o.Errors...)
	r.Warnings = append(r.Warnings, o.Warnings...)
}

// histogramSuffixes are stripped before looking a series name up, so a
// histogram is registered once under its base name.
var histogramSuffixes = []string{"_bucket", "_sum", "_count"}

// Dashboard validates every "expr" found in the dashboard's JSON form.
func Dashboard(dash any, known map[string]bool) Result {
	var res Result

	data, err := json.Marshal(dash)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("marshaling dashboard: %v", err))
		return res
	}
	var tree any
	if err := json.Unmarshal(data, &tree); err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("decoding dashboard: %v", err))
		return res
	}

	exprs := collectExprs(tree, nil)
	if len(exprs) == 0 {
		res.Warnings = append(res.Warnings, "dashboard has no query expressions")
	}
	res.merge(Exprs(exprs, known))
	return res
}

// Exprs validates a list of PromQL expressions.
func Exprs(exprs []string, known map[string]bool) Result {
	var res Result
	for _, e := range exprs {
		res.merge(Expr(e, known))
	}
	return res
}

// Expr parses one expression and checks its selectors against known.
func Expr(expr string, known map[string]bool) Result {
	var res Result

	node, err := parser.ParseExpr(expr)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("parsing %q: %v", expr, err))
		return res
	}

	for _, name := range metricNames(node) {
		if !known[baseName(name)] {
			res.Errors = append(res.Errors, fmt.Sprintf("unknown metric %q in %q", name, expr))
		}
	}
	return res
}

func metricNames(node parser.Node) []string {
	seen := map[string]bool{}
	parser.Inspect(node, func(n parser.Node, _ []parser.Node) error {
		if vs, ok := n.(*parser.VectorSelector); ok && vs.Name != "" {
			seen[vs.Name] = true
		}
		return nil
	})

	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func baseName(name string) string {
	for _, s := range histogramSuffixes {
		if trimmed, ok := strings.CutSuffix(name, s); ok {
			return trimmed
		}
	}
	return name
}

func collectExprs(v any, out []string) []string {
	switch t := v.(type) {
	case map[string]any:
		if e, ok := t["expr"].(string); ok && e != "" {
			out = append(out, e)
		}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out = collectExprs(t[k], out)
		}
	case []any:
		for _, item := range t {
			out = collectExprs(item, out)
		}
	}
	return out
}
