package main

import (
	"os"

	"geo-places/cmd/geoplacesctl/tool/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
