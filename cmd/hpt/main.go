// Package main is the entry point for the hpt CLI client.
package main

import (
	"github.com/donaldgifford/hotel-price-tracker/cmd/hpt/cmd"
)

func main() {
	cmd.Execute()
}
