package main

import (
	"os"

	cartablecmder "github.com/cartableai/cartable/cmd/cartable"
)

func main() {
	cmd := cartablecmder.NewCartableCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
