package main

import (
	"os"

	"github.com/solatis/sdtmcheck/cmd/sdtmcheck/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
