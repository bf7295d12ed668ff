// Package main generates CLI reference documentation from the hpt command
// tree and writes the OpenAPI document for the HTTP API.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humaecho"
	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra/doc"

	"github.com/donaldgifford/hotel-price-tracker/cmd/hpt/cmd"
	"github.com/donaldgifford/hotel-price-tracker/internal/api/handlers"
)

func main() {
	output := flag.String("output", "docs/cli", "output directory for generated markdown")
	openAPI := flag.String("openapi", "docs/openapi.yaml", "path for the OpenAPI document (empty to skip)")
	flag.Parse()

	if err := os.MkdirAll(*output, 0o750); err != nil {
		log.Fatalf("creating output directory: %v", err)
	}

	root := cmd.Root()
	root.DisableAutoGenTag = true

	if err := doc.GenMarkdownTree(root, *output); err != nil {
		log.Fatalf("generating docs: %v", err)
	}
	fmt.Printf("CLI docs generated in %s/\n", *output)

	if *openAPI == "" {
		return
	}
	data, err := openAPIDocument()
	if err != nil {
		log.Fatalf("rendering OpenAPI document: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(*openAPI), 0o750); err != nil {
		log.Fatalf("creating output directory: %v", err)
	}
	if err := os.WriteFile(*openAPI, data, 0o600); err != nil {
		log.Fatalf("writing OpenAPI document: %v", err)
	}
	fmt.Printf("OpenAPI document written to %s\n", *openAPI)
}

// openAPIDocument registers every API operation on a throwaway router. The
// handlers are never invoked, so they carry no dependencies.
func openAPIDocument() ([]byte, error) {
	cfg := huma.DefaultConfig("Hotel Price Tracker API", "dev")
	api := humaecho.New(echo.New(), cfg)

	handlers.RegisterBookingRoutes(api, handlers.NewBookingHandler(nil, nil))
	handlers.RegisterAlertRoutes(api, handlers.NewAlertHandler(nil, nil))
	handlers.RegisterSettingsRoutes(api, handlers.NewSettingsHandler(nil))
	handlers.RegisterCheckRoutes(api, handlers.NewCheckHandler(nil, nil))
	handlers.RegisterQuotaRoutes(api, handlers.NewQuotaHandler(nil))
	handlers.RegisterJobRoutes(api, handlers.NewJobsHandler(nil, nil))

	return api.OpenAPI().YAML()
}
