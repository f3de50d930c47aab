package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// SQL dump wrapper statements. They disable per-statement commits and
// checks while a MySQL dump is replayed.
var (
	dumpPrologue = []string{
		"set autocommit=0;",
		"set unique_checks=0;",
		"set foreign_key_checks=0;",
	}
	dumpEpilogue = []string{
		"set autocommit=1;",
		"set unique_checks=1;",
		"set foreign_key_checks=1;",
	}
)

// dumpHeaderLines is the number of leading lines dropped from the dump.
const dumpHeaderLines = 2

var patchDumpCmd = &cobra.Command{
	Use:   "patch-dump",
	Short: "Rewrite a SQL dump on stdin for a fast bulk import",
	Long: `patch-dump reads a SQL dump from stdin, drops its first two lines and
wraps the rest in statements that turn off autocommit, unique checks and
foreign key checks, then turn them back on. The result is written to stdout.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return patchDump(cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

// patchDump copies in to out, dropping the header lines and adding the
// wrapper statements. Lines are joined with "\n" and the output has no
// trailing newline.
func patchDump(in io.Reader, out io.Writer) error {
	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read dump: %w", err)
	}

	lines := strings.Split(string(data), "\n")
	if len(lines) > dumpHeaderLines {
		lines = lines[dumpHeaderLines:]
	} else {
		lines = nil
	}

	w := bufio.NewWriter(out)
	all := make([]string, 0, len(dumpPrologue)+len(lines)+len(dumpEpilogue))
	all = append(all, dumpPrologue...)
	all = append(all, lines...)
	all = append(all, dumpEpilogue...)
	if _, err := w.WriteString(strings.Join(all, "\n")); err != nil {
		return fmt.Errorf("write dump: %w", err)
	}
	return w.Flush()
}
