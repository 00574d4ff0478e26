package runner

import (
	"fmt"
	"strings"
)

// stdlibMarkers maps textual usage markers to the standard-library package
// that satisfies them. This is a deliberate allow-list pattern match, not
// static analysis: only the listed names ever trigger an import, so behaviour
// stays enumerable. Order matters where one marker shadows another
// ("sync/atomic" and "atomic." before "sync.").
var stdlibMarkers = []struct {
	marker string
	path   string
}{
	{"time.", "time"},
	{"math.", "math"},
	{"fmt.", "fmt"},
	{"strings.", "strings"},
	{"sync/atomic", "sync/atomic"},
	{"atomic.", "sync/atomic"},
	{"sync.", "sync"},
	{"context.", "context"},
	{"errors.", "errors"},
	{"sort.", "sort"},
	{"bytes.", "bytes"},
	{"cmp.", "cmp"},
}

// detectImports scans the test source for allow-listed markers and returns the
// import paths the synthesized test file needs. "testing" is always first.
func detectImports(testSource string) []string {
	imports := []string{"testing"}
	seen := map[string]bool{"testing": true}

	for _, entry := range stdlibMarkers {
		if !strings.Contains(testSource, entry.marker) {
			continue
		}
		if seen[entry.path] {
			continue
		}
		seen[entry.path] = true
		imports = append(imports, entry.path)
	}

	return imports
}

// synthesizeTestFile wraps raw test source lacking a package clause into a
// complete main-package test file with an inferred import block.
func synthesizeTestFile(testSource string) string {
	var b strings.Builder
	b.WriteString("package main\n\nimport (\n")
	for _, path := range detectImports(testSource) {
		fmt.Fprintf(&b, "\t%q\n", path)
	}
	b.WriteString(")\n\n")
	b.WriteString(testSource)
	if !strings.HasSuffix(testSource, "\n") {
		b.WriteString("\n")
	}
	return b.String()
}
