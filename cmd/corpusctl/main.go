// Package main provides the entry point for the corpusctl CLI.
package main

import (
	"fmt"
	"os"

	"github.com/Aman-CERP/corpusctl/cmd/corpusctl/cmd"
	cerrors "github.com/Aman-CERP/corpusctl/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, cerrors.FormatForCLI(err))
		os.Exit(1)
	}
}
