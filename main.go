package main

import (
	"os"

	"github.com/getlawrence/gawriter/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
