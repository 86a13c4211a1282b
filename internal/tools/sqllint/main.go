// Command sqllint checks that every query constant in the prompt queue SQL
// catalogue opens with a unique "--sql <uuid>" audit marker, the marker
// infra.SQLRunner logs when a statement fails.
package main

import (
	"flag"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const defaultTarget = "internal/sqlinline"

var (
	statementPattern = regexp.MustCompile(`(?i)\b(select|insert|update|delete|create|with)\b`)
	markerPattern    = regexp.MustCompile(`^--sql [0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
)

type finding struct {
	file    string
	line    int
	name    string
	message string
}

func (f finding) String() string {
	return fmt.Sprintf("%s:%d %s (%s)", f.file, f.line, f.message, f.name)
}

type marked struct {
	marker string
	at     finding
}

func main() {
	flag.Parse()
	os.Exit(run(flag.Args(), os.Stderr))
}

func run(targets []string, stderr io.Writer) int {
	if len(targets) == 0 {
		targets = []string{defaultTarget}
	}
	var (
		findings []finding
		markers  []marked
	)
	for _, target := range targets {
		files, err := goFiles(target)
		if err != nil {
			fmt.Fprintf(stderr, "sqllint: %v\n", err)
			return 2
		}
		for _, path := range files {
			src, err := os.ReadFile(path)
			if err != nil {
				fmt.Fprintf(stderr, "sqllint: %v\n", err)
				return 2
			}
			fs, ms, err := lintSource(path, src)
			if err != nil {
				fmt.Fprintf(stderr, "sqllint: %v\n", err)
				return 2
			}
			findings = append(findings, fs...)
			markers = append(markers, ms...)
		}
	}
	findings = append(findings, duplicates(markers)...)
	if len(findings) == 0 {
		return 0
	}
	fmt.Fprintln(stderr, "sqllint: SQL audit marker problems")
	for _, f := range findings {
		fmt.Fprintf(stderr, "  %s\n", f)
	}
	return 1
}

func goFiles(target string) ([]string, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		if filepath.Ext(target) == ".go" {
			return []string{target}, nil
		}
		return nil, nil
	}
	var files []string
	err = filepath.WalkDir(target, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != target && (strings.HasPrefix(d.Name(), ".") || strings.HasPrefix(d.Name(), "_") || d.Name() == "vendor") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) == ".go" && !strings.HasSuffix(path, "_test.go") {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// lintSource reports string constants that look like SQL but lack a valid
// marker, and returns the markers it did find.
func lintSource(path string, src []byte) ([]finding, []marked, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, src, parser.ParseComments)
	if err != nil {
		return nil, nil, err
	}
	var (
		findings []finding
		markers  []marked
	)
	ast.Inspect(file, func(n ast.Node) bool {
		vs, ok := n.(*ast.ValueSpec)
		if !ok {
			return true
		}
		for i, value := range vs.Values {
			lit, ok := value.(*ast.BasicLit)
			if !ok || lit.Kind != token.STRING {
				continue
			}
			raw, err := unquote(lit.Value)
			if err != nil || !statementPattern.MatchString(raw) {
				continue
			}
			at := finding{
				file: path,
				line: fset.Position(lit.Pos()).Line,
				name: specName(vs, i),
			}
			marker := firstLine(raw)
			if !markerPattern.MatchString(marker) {
				at.message = "missing or invalid --sql <uuid> marker"
				findings = append(findings, at)
				continue
			}
			markers = append(markers, marked{marker: marker, at: at})
		}
		return true
	})
	return findings, markers, nil
}

func duplicates(markers []marked) []finding {
	byMarker := make(map[string][]finding)
	for _, m := range markers {
		byMarker[m.marker] = append(byMarker[m.marker], m.at)
	}
	var out []finding
	for marker, at := range byMarker {
		if len(at) < 2 {
			continue
		}
		for _, f := range at[1:] {
			f.message = "duplicate marker " + strings.TrimPrefix(marker, "--sql ") + " first used by " + at[0].name
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].file != out[j].file {
			return out[i].file < out[j].file
		}
		return out[i].line < out[j].line
	})
	return out
}

func firstLine(s string) string {
	s = strings.TrimLeft(s, "\n\r \t")
	if idx := strings.IndexAny(s, "\n\r"); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return strings.TrimSpace(s)
}

func unquote(v string) (string, error) {
	if strings.HasPrefix(v, "`") {
		return strings.Trim(v, "`"), nil
	}
	return strconv.Unquote(v)
}

func specName(vs *ast.ValueSpec, i int) string {
	if i < len(vs.Names) && vs.Names[i] != nil {
		return vs.Names[i].Name
	}
	return "_"
}
