// Package main provides the reptiledb CLI: it loads the reptile and
// bibliography dumps into a database and serves the catalog over HTTP.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
