//go:generate go run . -output docs/configuration

// Command docgen generates the markdown reference of the plugin settings.
//
// Usage:
//
//	go run ./cmd/docgen -output docs/configuration
//
// It parses pkg/config/settings.go with go/ast and renders every field of
// Settings with its config key, type, default and doc comment.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// sourceFile is a Go file and the structs to document from it.
type sourceFile struct {
	path     string
	structs  []string
	output   string
	docTitle string
	docDesc  string
}

var sourceFiles = []sourceFile{
	{
		path:     "pkg/config/settings.go",
		structs:  []string{"Settings"},
		output:   "settings.md",
		docTitle: "Plugin Settings",
		docDesc: "Keys the plugin adds to the Tutor configuration. Override them with " +
			"`tutor config save --set KEY=VALUE` or a `TUTOR_KEY` environment variable.",
	},
}

func main() {
	outputDir := flag.String("output", "docs/configuration", "Output directory for generated documentation")
	rootDir := flag.String("root", "", "Root directory of the project (defaults to the directory holding go.mod)")
	verbose := flag.Bool("verbose", false, "Enable verbose output")
	flag.Parse()

	if *rootDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			log.Fatalf("Failed to get working directory: %v", err)
		}
		*rootDir = findProjectRoot(wd)
	}

	outPath := *outputDir
	if !filepath.IsAbs(outPath) {
		outPath = filepath.Join(*rootDir, outPath)
	}
	if err := os.MkdirAll(outPath, 0750); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	for _, sf := range sourceFiles {
		if *verbose {
			log.Printf("Documenting %s -> %s", sf.path, sf.output)
		}
		if err := processSourceFile(*rootDir, outPath, sf); err != nil {
			log.Fatalf("Failed to process %s: %v", sf.path, err)
		}
	}

	fmt.Printf("Documentation generated successfully in %s\n", outPath)
}

func processSourceFile(rootDir, outPath string, sf sourceFile) (err error) {
	all, err := ParseFile(filepath.Join(rootDir, sf.path))
	if err != nil {
		return fmt.Errorf("parsing: %w", err)
	}

	structs := SelectStructs(all, sf.structs)
	if len(structs) == 0 {
		return fmt.Errorf("no matching structs (looking for %v)", sf.structs)
	}

	f, err := os.Create(filepath.Clean(filepath.Join(outPath, sf.output)))
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return WriteReference(f, sf.docTitle, sf.docDesc, structs)
}

// findProjectRoot walks up from start to the directory holding go.mod.
func findProjectRoot(start string) string {
	dir := start
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return start
		}
		dir = parent
	}
}
