// Package main is the entry point for the hotel-price-tracker service.
package main

import (
	"os"

	"github.com/donaldgifford/hotel-price-tracker/cmd/hotel-price-tracker/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
