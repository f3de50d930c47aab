package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/reptiledb/internal/loader"
)

func TestPatchDump(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "drops header",
			in:   "-- MySQL dump\n-- Host: localhost\nINSERT INTO t VALUES (1);\n",
			want: "set autocommit=0;\nset unique_checks=0;\nset foreign_key_checks=0;\n" +
				"INSERT INTO t VALUES (1);\n\n" +
				"set autocommit=1;\nset unique_checks=1;\nset foreign_key_checks=1;",
		},
		{
			name: "header only",
			in:   "-- a\n-- b",
			want: "set autocommit=0;\nset unique_checks=0;\nset foreign_key_checks=0;\n" +
				"set autocommit=1;\nset unique_checks=1;\nset foreign_key_checks=1;",
		},
		{
			name: "empty input",
			in:   "",
			want: "set autocommit=0;\nset unique_checks=0;\nset foreign_key_checks=0;\n" +
				"set autocommit=1;\nset unique_checks=1;\nset foreign_key_checks=1;",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			if err := patchDump(strings.NewReader(tt.in), &out); err != nil {
				t.Fatalf("patchDump() error = %v", err)
			}
			if out.String() != tt.want {
				t.Errorf("patchDump() =\n%q\nwant\n%q", out.String(), tt.want)
			}
		})
	}
}

func TestPatchDumpCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetIn(strings.NewReader("h1\nh2\nSELECT 1;"))
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"patch-dump"})
	t.Cleanup(func() {
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out.String(), "set foreign_key_checks=0;\nSELECT 1;\nset autocommit=1;") {
		t.Errorf("output = %q", out.String())
	}
}

func TestPrintResult(t *testing.T) {
	var out bytes.Buffer
	printResult(&out, &loader.Result{
		Dump:                   "reptiles",
		File:                   "reptiles.txt",
		Encoding:               "UTF-8",
		Confidence:             100,
		TotalRows:              3,
		Loaded:                 2,
		Skipped:                1,
		FailedRows:             []loader.FailedRow{{LineNumber: 2, Reason: "subspecies_year: year is not an integer"}},
		AdminCreated:           true,
		GeneratedAdminPassword: "generated-pw",
		Duration:               1500 * time.Millisecond,
	})

	got := out.String()
	for _, want := range []string{"reptiles: reptiles.txt", "loaded:        2", "line 2: subspecies_year", "admin password: generated-pw", "1.5s"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}
