// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	md2man "github.com/cpuguy83/go-md2man/v2/md2man"
)

// docgen reads docs/commands/*.md as the canonical command docs and
// generates:
//   - docs/man/share/man1/catinfo-<cmd>.1 via md2man
//   - docs/tldr/catinfo-<cmd>.md from the short description and the Quick
//     examples block

const (
	program  = "catinfo"
	homepage = "https://github.com/staranto/catinfo"
)

type generator struct {
	commandsDir   string
	manDir        string
	tldrDir       string
	onlyIfChanged bool
}

func newGenerator(root string, onlyIfChanged bool) *generator {
	return &generator{
		commandsDir:   filepath.Join(root, "docs", "commands"),
		manDir:        filepath.Join(root, "docs", "man", "share", "man1"),
		tldrDir:       filepath.Join(root, "docs", "tldr"),
		onlyIfChanged: onlyIfChanged,
	}
}

func main() {
	var (
		repoRoot           string
		writeOnlyIfChanged bool
	)

	flag.StringVar(&repoRoot, "root", ".", "repo root (default current dir)")
	flag.BoolVar(&writeOnlyIfChanged, "only-if-changed", true, "only write files if content changed")
	flag.Parse()

	n, err := newGenerator(repoRoot, writeOnlyIfChanged).run()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("generated docs for %d commands\n", n)
}

// run renders every command doc and returns how many were processed.
func (g *generator) run() (int, error) {
	for _, dir := range []string{g.manDir, g.tldrDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("creating output dir %s: %w", dir, err)
		}
	}

	entries, err := os.ReadDir(g.commandsDir)
	if err != nil {
		return 0, fmt.Errorf("reading commands dir %s: %w", g.commandsDir, err)
	}

	var processed int
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		cmd := strings.TrimSuffix(e.Name(), ".md")
		raw, err := os.ReadFile(filepath.Join(g.commandsDir, e.Name()))
		if err != nil {
			return processed, fmt.Errorf("reading %s: %w", e.Name(), err)
		}

		manPath := filepath.Join(g.manDir, fmt.Sprintf("%s-%s.1", program, cmd))
		if err := writeFileIfChanged(manPath, md2man.Render(raw), g.onlyIfChanged); err != nil {
			return processed, fmt.Errorf("writing man page for %s: %w", cmd, err)
		}

		p := parsePage(string(raw))
		tldr := buildTLDR(cmd, p.Title, p.Short, p.Examples)
		tldrPath := filepath.Join(g.tldrDir, fmt.Sprintf("%s-%s.md", program, cmd))
		if err := writeFileIfChanged(tldrPath, []byte(tldr), g.onlyIfChanged); err != nil {
			return processed, fmt.Errorf("writing TLDR for %s: %w", cmd, err)
		}

		processed++
	}

	if processed == 0 {
		return 0, fmt.Errorf("no command markdown found under %s", g.commandsDir)
	}
	return processed, nil
}

// writeFileIfChanged skips the write when the file already holds content,
// ignoring surrounding whitespace, so regenerating leaves mtimes alone.
func writeFileIfChanged(path string, content []byte, onlyIfChanged bool) error {
	if onlyIfChanged {
		old, err := os.ReadFile(path)
		switch {
		case err == nil && bytes.Equal(bytes.TrimSpace(old), bytes.TrimSpace(content)):
			return nil
		case err != nil && !errors.Is(err, fs.ErrNotExist):
			return err
		}
	}
	return os.WriteFile(path, content, 0o644)
}

type example struct {
	Desc string
	Cmd  string
}

// page is what a tldr entry needs from a command doc.
type page struct {
	Title    string
	Short    string
	Examples []example
}

// Section labels are bare lines in the command docs.
const (
	sectionShort    = "short description"
	sectionExamples = "quick examples"
	sectionFlags    = "flags and related docs"
)

// parsePage scans a command doc once. The title is the first H1, the short
// description is the first paragraph of its section, and the examples come
// from the first fenced block under Quick examples: "#" lines describe, the
// next line is the command.
func parsePage(md string) page {
	var (
		p       page
		section string
		fences  int
		para    []string
		desc    string
	)

	for _, ln := range strings.Split(md, "\n") {
		line := strings.TrimSpace(strings.TrimRight(ln, "\r"))

		if strings.HasPrefix(line, "```") {
			if section == sectionExamples {
				fences++
			}
			continue
		}
		inBlock := fences == 1

		switch label := strings.ToLower(line); {
		case !inBlock && (label == sectionShort || label == sectionExamples || label == sectionFlags):
			section = label
			continue
		case !inBlock && strings.HasPrefix(line, "#"):
			if p.Title == "" {
				p.Title = strings.TrimSpace(strings.TrimLeft(line, "#"))
			}
			section = ""
			continue
		}

		switch section {
		case sectionShort:
			if p.Short != "" {
				continue
			}
			if line == "" || strings.HasSuffix(line, ":") {
				if len(para) > 0 {
					p.Short = strings.Join(para, " ")
				}
				continue
			}
			para = append(para, line)
		case sectionExamples:
			if !inBlock || line == "" {
				continue
			}
			if strings.HasPrefix(line, "#") {
				desc = strings.TrimSpace(strings.TrimPrefix(line, "#"))
				continue
			}
			if desc == "" {
				desc = "Example"
			}
			p.Examples = append(p.Examples, example{Desc: desc, Cmd: line})
			desc = ""
		}
	}

	if p.Short == "" && len(para) > 0 {
		p.Short = strings.Join(para, " ")
	}
	if p.Short == "" && p.Title != "" {
		p.Short = p.Title + "."
	}
	return p
}

// buildTLDR renders a tldr-pages entry. With no examples it points at --help.
func buildTLDR(cmd, title, short string, exs []example) string {
	summary := short
	if summary == "" {
		summary = title
	}
	if summary == "" {
		summary = program + " " + cmd
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s-%s\n\n> %s\n> More information: %s.\n\n", program, cmd, summary, homepage)

	if len(exs) == 0 {
		exs = []example{{Desc: "Show help for the command", Cmd: program + " " + cmd + " --help"}}
	}
	for i, ex := range exs {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "- %s:\n\n`%s`\n", strings.TrimSpace(ex.Desc), sanitizeCommand(ex.Cmd))
	}
	return b.String()
}

var placeholderRe = regexp.MustCompile(`<([a-z][a-z0-9-]*)>`)

// sanitizeCommand compresses whitespace and rewrites <placeholder> into the
// tldr {{placeholder}} form.
func sanitizeCommand(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return placeholderRe.ReplaceAllString(s, "{{$1}}")
}
