// Command dashgen generates the Grafana overview dashboard and the Prometheus
// rule files for hotel-price-tracker.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/donaldgifford/hotel-price-tracker/tools/dashgen/dashboards"
	"github.com/donaldgifford/hotel-price-tracker/tools/dashgen/rules"
	"github.com/donaldgifford/hotel-price-tracker/tools/dashgen/validate"
)

const generatedHeader = "# Code generated by tools/dashgen. DO NOT EDIT.\n"

func main() {
	validateOnly := flag.Bool("validate", false, "validate generated artifacts without writing files")
	outputDir := flag.String("output", "", "override output directory")
	flag.Parse()

	cfg := DefaultConfig()
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, *validateOnly); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// artifact is one generated file, relative to the output directory.
type artifact struct {
	path string
	data []byte
}

func run(cfg Config, validateOnly bool) error {
	artifacts, res, err := generate(cfg)
	if err != nil {
		return err
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	if !res.Ok() {
		return fmt.Errorf("validation failed:\n  %s", strings.Join(res.Errors, "\n  "))
	}

	if validateOnly {
		fmt.Println("validation passed")
		return nil
	}

	for _, a := range artifacts {
		path := filepath.Join(cfg.OutputDir, a.path)
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return fmt.Errorf("creating directory for %s: %w", a.path, err)
		}
		if err := os.WriteFile(path, a.data, 0o600); err != nil {
			return fmt.Errorf("writing %s: %w", a.path, err)
		}
		fmt.Printf("wrote %s\n", path)
	}
	return nil
}

// generate renders every enabled artifact and validates its PromQL.
func generate(cfg Config) ([]artifact, validate.Result, error) {
	var (
		out []artifact
		res validate.Result
	)

	if cfg.DashboardEnabled {
		dash, err := dashboards.BuildOverview().Build()
		if err != nil {
			return nil, res, fmt.Errorf("building overview dashboard: %w", err)
		}
		r := validate.Dashboard(dash, KnownMetrics)
		res.Errors = append(res.Errors, r.Errors...)
		res.Warnings = append(res.Warnings, r.Warnings...)

		data, err := json.MarshalIndent(dash, "", "  ")
		if err != nil {
			return nil, res, fmt.Errorf("marshaling dashboard: %w", err)
		}
		out = append(out, artifact{
			path: filepath.Join("grafana", "data", "hpt-overview.json"),
			data: append(data, '\n'),
		})
	}

	if cfg.RulesEnabled {
		for file, cr := range map[string]rules.PrometheusRule{
			"hpt-recording-rules.yaml": rules.RecordingRules(),
			"hpt-alerts.yaml":          rules.AlertRules(),
		} {
			r := validate.Exprs(cr.Exprs(), KnownMetrics)
			res.Errors = append(res.Errors, r.Errors...)

			data, err := yaml.Marshal(cr)
			if err != nil {
				return nil, res, fmt.Errorf("marshaling %s: %w", file, err)
			}
			out = append(out, artifact{
				path: filepath.Join("prometheus", file),
				data: append([]byte(generatedHeader), data...),
			})
		}
	}

	if len(out) == 0 {
		return nil, res, errors.New("nothing to generate")
	}
	return out, res, nil
}
