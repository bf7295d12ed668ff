package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var known = map[string]bool{
	"hpt_http_requests_total":           true,
	"hpt_http_request_duration_seconds": true,
	"hpt:http_requests:rate5m":          true,
}

func TestExpr(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		expr    string
		wantErr string
	}{
		{name: "known counter", expr: `rate(hpt_http_requests_total{job="hotel-price-tracker"}[5m])`},
		{name: "recording rule", expr: `hpt:http_requests:rate5m * 60`},
		{
			name: "histogram bucket",
			expr: `histogram_quantile(0.95, sum(rate(hpt_http_request_duration_seconds_bucket[5m])) by (le))`,
		},
		{name: "no selectors", expr: `time()`},
		{name: "unknown metric", expr: `rate(hpt_missing_total[5m])`, wantErr: `unknown metric "hpt_missing_total"`},
		{name: "parse error", expr: `sum(rate(hpt_http_requests_total[5m])`, wantErr: "parsing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res := Expr(tt.expr, known)
			if tt.wantErr == "" {
				assert.True(t, res.Ok(), "errors: %v", res.Errors)
				return
			}
			assert.False(t, res.Ok())
			assert.Contains(t, res.Errors[0], tt.wantErr)
		})
	}
}

func TestDashboard(t *testing.T) {
	t.Parallel()

	dash := map[string]any{
		"title": "x",
		"panels": []any{
			map[string]any{"targets": []any{
				map[string]any{"expr": `hpt:http_requests:rate5m`},
				map[string]any{"expr": `rate(hpt_other_total[5m])`},
			}},
		},
	}

	res := Dashboard(dash, known)
	assert.Len(t, res.Errors, 1)
	assert.Empty(t, res.Warnings)
}

func TestDashboard_NoExprs(t *testing.T) {
	t.Parallel()

	res := Dashboard(map[string]any{"title": "empty"}, known)
	assert.True(t, res.Ok())
	assert.Len(t, res.Warnings, 1)
}
