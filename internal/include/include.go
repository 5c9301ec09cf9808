// SPDX-License-Identifier: MPL-2.0

package include

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/grovecli/grove/pkg/grovefile"
)

// directivePrefix starts an include line.
const directivePrefix = "@include"

// ErrIncludeCycle is the sentinel wrapped by IncludeCycleError.
var ErrIncludeCycle = errors.New("circular include")

type (
	// Fetcher retrieves the text of a remote include target.
	Fetcher func(url string) (string, error)

	// Expander flattens @include directives recursively, producing the
	// flat manifest text with interleaved source markers.
	Expander struct {
		fetch Fetcher
	}

	// Option configures an Expander.
	Option func(*Expander)

	// IncludeCycleError reports an include chain that revisits a target.
	IncludeCycleError struct {
		// Chain is the include chain walked so far, outermost first.
		Chain []string
		// Target is the file or URL that closed the cycle.
		Target string
	}

	// directive is one parsed @include line.
	directive struct {
		target string
		into   string
		from   []string
	}

	// resolved is one concrete include target after path and glob
	// resolution.
	resolved struct {
		// key identifies the target for cycle detection: an absolute
		// file path or a URL.
		key    string
		remote bool
	}
)

func (e *IncludeCycleError) Error() string {
	chain := append(append([]string{}, e.Chain...), e.Target)
	return fmt.Sprintf("circular include detected: %s", strings.Join(chain, " -> "))
}

func (e *IncludeCycleError) Unwrap() error { return ErrIncludeCycle }

// WithFetcher replaces the remote target fetcher, usually for tests.
func WithFetcher(f Fetcher) Option {
	return func(e *Expander) { e.fetch = f }
}

// NewExpander creates an Expander. Remote targets are fetched over
// HTTPS unless WithFetcher overrides the transport.
func NewExpander(opts ...Option) *Expander {
	e := &Expander{fetch: fetchHTTPS}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Flatten reads the manifest at path and expands it with the default
// Expander.
func Flatten(path string) (string, error) {
	return NewExpander().Flatten(path)
}

// Flatten reads the manifest at path, expands every @include, and
// returns the flat text the parser consumes.
func (e *Expander) Flatten(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve manifest path: %w", err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("read manifest: %w", err)
	}
	var b strings.Builder
	writeMarker(&b, abs)
	if err := e.expand(&b, string(data), abs, filepath.Dir(abs), []string{abs}); err != nil {
		return "", err
	}
	return b.String(), nil
}

// expand streams text to b, replacing each @include line with the
// flattened content of its targets. src names the contributing file for
// error messages; dir is the base for relative targets, "" inside
// remote content where no base exists.
func (e *Expander) expand(b *strings.Builder, text, src, dir string, stack []string) error {
	lines := strings.Split(text, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	for i, raw := range lines {
		trimmed := strings.TrimSpace(raw)
		if trimmed != directivePrefix && !strings.HasPrefix(trimmed, directivePrefix+" ") {
			b.WriteString(raw)
			b.WriteByte('\n')
			continue
		}
		d, err := parseDirective(trimmed)
		if err != nil {
			return fmt.Errorf("%s:%d: %w", src, i+1, err)
		}
		indent := raw[:len(raw)-len(strings.TrimLeft(raw, " "))]
		if err := e.expandTarget(b, d, src, dir, indent, stack); err != nil {
			return fmt.Errorf("%s:%d: %w", src, i+1, err)
		}
	}
	return nil
}

func (e *Expander) expandTarget(b *strings.Builder, d directive, src, dir, indent string, stack []string) error {
	targets, err := e.resolveTargets(d.target, dir)
	if err != nil {
		return err
	}
	for _, t := range targets {
		chunk, err := e.load(t, stack)
		if err != nil {
			return err
		}
		if len(d.from) > 0 {
			chunk, err = filterCommands(chunk, d.from, t.key)
			if err != nil {
				return err
			}
			chunk = markerLine(t.key) + chunk
		}
		if d.into != "" {
			chunk = nest(chunk, d.into)
		}
		if indent != "" {
			chunk = indentChunk(chunk, indent)
		}
		b.WriteString(chunk)
		// Restore attribution for the lines that follow the include.
		writeMarker(b, src)
	}
	return nil
}

// resolveTargets turns one include target into concrete files or URLs.
// Globs expand sorted; a directory target resolves to the grovefile
// inside it.
func (e *Expander) resolveTargets(target, dir string) ([]resolved, error) {
	if strings.HasPrefix(target, "https://") || strings.HasPrefix(target, "http://") {
		return []resolved{{key: target, remote: true}}, nil
	}
	path := filepath.FromSlash(target)
	if !filepath.IsAbs(path) {
		if dir == "" {
			return nil, fmt.Errorf("relative include %q inside a remote include", target)
		}
		path = filepath.Join(dir, path)
	}
	if strings.ContainsAny(target, "*?[{") {
		matches, err := doublestar.FilepathGlob(path)
		if err != nil {
			return nil, fmt.Errorf("bad include pattern %q: %w", target, err)
		}
		slices.Sort(matches)
		var out []resolved
		for _, m := range matches {
			abs, err := filepath.Abs(m)
			if err != nil {
				return nil, fmt.Errorf("resolve include match %q: %w", m, err)
			}
			if info, err := os.Stat(abs); err == nil && info.IsDir() {
				continue
			}
			out = append(out, resolved{key: abs})
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("include pattern %q matches nothing", target)
		}
		return out, nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve include %q: %w", target, err)
	}
	if info, err := os.Stat(abs); err == nil && info.IsDir() {
		abs = filepath.Join(abs, grovefile.ManifestName)
	}
	return []resolved{{key: abs}}, nil
}

// load reads one target and expands its own includes, returning the
// chunk with its leading source marker.
func (e *Expander) load(t resolved, stack []string) (string, error) {
	if slices.Contains(stack, t.key) {
		return "", &IncludeCycleError{Chain: stack, Target: t.key}
	}
	var content, dir string
	if t.remote {
		text, err := e.fetch(t.key)
		if err != nil {
			return "", err
		}
		content = text
	} else {
		data, err := os.ReadFile(t.key)
		if err != nil {
			return "", fmt.Errorf("read include: %w", err)
		}
		content, dir = string(data), filepath.Dir(t.key)
	}
	var inner strings.Builder
	writeMarker(&inner, t.key)
	if err := e.expand(&inner, content, t.key, dir, append(slices.Clone(stack), t.key)); err != nil {
		return "", err
	}
	return inner.String(), nil
}

// filterCommands keeps only the named top-level commands of chunk,
// re-serialized together with the chunk's file-scope env lines,
// assignments, and functions. Source markers inside the chunk do not
// survive the round trip; the caller re-attributes the result.
func filterCommands(chunk string, names []string, label string) (string, error) {
	man, err := grovefile.NewParser().Parse(chunk)
	if err != nil {
		return "", fmt.Errorf("parse include %q: %w", label, err)
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var kept []*grovefile.Command
	for _, c := range man.Commands {
		if want[c.Name] {
			kept = append(kept, c)
			delete(want, c.Name)
		}
	}
	if len(want) > 0 {
		missing := slices.Sorted(maps.Keys(want))
		return "", fmt.Errorf("include %q has no command named %s", label, strings.Join(missing, ", "))
	}
	man.Commands = kept
	return man.Serialize(), nil
}

// nest wraps a chunk in a group header, indenting every line one level.
func nest(chunk, group string) string {
	var b strings.Builder
	b.WriteString(group)
	b.WriteString("():\n")
	writeIndented(&b, chunk, "    ")
	return b.String()
}

// indentChunk shifts a chunk right by the include line's own indent.
func indentChunk(chunk, indent string) string {
	var b strings.Builder
	writeIndented(&b, chunk, indent)
	return b.String()
}

func writeIndented(b *strings.Builder, chunk, indent string) {
	lines := strings.Split(chunk, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			b.WriteByte('\n')
			continue
		}
		b.WriteString(indent)
		b.WriteString(line)
		b.WriteByte('\n')
	}
}

// parseDirective parses the tail of an @include line:
//
//	@include <target> [into <group>] [from <a,b,...>]
//
// The target may be double-quoted when it contains spaces.
func parseDirective(line string) (directive, error) {
	rest := strings.TrimSpace(strings.TrimPrefix(line, directivePrefix))
	if rest == "" {
		return directive{}, fmt.Errorf("include: missing target")
	}
	var d directive
	if strings.HasPrefix(rest, `"`) {
		end := strings.Index(rest[1:], `"`)
		if end < 0 {
			return directive{}, fmt.Errorf("include: unterminated quoted target")
		}
		d.target = rest[1 : end+1]
		rest = strings.TrimSpace(rest[end+2:])
	} else {
		d.target, rest, _ = strings.Cut(rest, " ")
		rest = strings.TrimSpace(rest)
	}
	if d.target == "" {
		return directive{}, fmt.Errorf("include: missing target")
	}
	for rest != "" {
		var word string
		word, rest, _ = strings.Cut(rest, " ")
		rest = strings.TrimSpace(rest)
		switch word {
		case "into":
			var name string
			name, rest, _ = strings.Cut(rest, " ")
			rest = strings.TrimSpace(rest)
			if name == "" {
				return directive{}, fmt.Errorf("include: expected a group name after 'into'")
			}
			if !grovefile.ValidCallPath(name) || strings.Contains(name, grovefile.PathSeparator) {
				return directive{}, fmt.Errorf("include: bad group name %q", name)
			}
			d.into = name
		case "from":
			if rest == "" {
				return directive{}, fmt.Errorf("include: expected command names after 'from'")
			}
			for _, n := range strings.Split(rest, ",") {
				if n = strings.TrimSpace(n); n != "" {
					d.from = append(d.from, n)
				}
			}
			if len(d.from) == 0 {
				return directive{}, fmt.Errorf("include: expected command names after 'from'")
			}
			rest = ""
		default:
			return directive{}, fmt.Errorf("include: unexpected token %q", word)
		}
	}
	return d, nil
}

func writeMarker(b *strings.Builder, path string) {
	b.WriteString(markerLine(path))
}

func markerLine(path string) string {
	return grovefile.SourceMarker + " " + path + "\n"
}
