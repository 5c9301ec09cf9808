// SPDX-License-Identifier: MPL-2.0

package grovefile

import (
	"fmt"
	"strings"

	"github.com/grovecli/grove/pkg/types"
)

// Directive keys recognized in command bodies.
const (
	DirDesc           DirectiveKey = "desc"
	DirCwd            DirectiveKey = "cwd"
	DirEnv            DirectiveKey = "env"
	DirEnvFile        DirectiveKey = "env_file"
	DirScript         DirectiveKey = "script"
	DirBefore         DirectiveKey = "before"
	DirAfter          DirectiveKey = "after"
	DirFallback       DirectiveKey = "fallback"
	DirFinally        DirectiveKey = "finally"
	DirDepends        DirectiveKey = "depends"
	DirPrivileged     DirectiveKey = "privileged"
	DirLogs           DirectiveKey = "logs"
	DirRequireConfirm DirectiveKey = "require_confirm"
	DirIf             DirectiveKey = "if"
	DirElif           DirectiveKey = "elif"
	DirElse           DirectiveKey = "else"
	DirValidate       DirectiveKey = "validate"
	DirWatch          DirectiveKey = "watch"
	DirShell          DirectiveKey = "shell"
)

// Log format constants for the logs directive.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// knownDirectiveKeys is the closed set of directive keys.
var knownDirectiveKeys = map[DirectiveKey]bool{
	DirDesc: true, DirCwd: true, DirEnv: true, DirEnvFile: true,
	DirScript: true, DirBefore: true, DirAfter: true, DirFallback: true,
	DirFinally: true, DirDepends: true, DirPrivileged: true, DirLogs: true,
	DirRequireConfirm: true, DirIf: true, DirElif: true, DirElse: true,
	DirValidate: true, DirWatch: true, DirShell: true,
}

type (
	// DirectiveKey names a behavioral property of a command.
	DirectiveKey string

	// Directive is one behavioral property attached to a command. A command
	// holds an ordered, possibly-duplicate directive list before merging;
	// the Resolver applies OS precedence over that list.
	//
	// Modifiers written after the key (dot-separated, order-insensitive)
	// populate OS, Hide, Parallel, and Format:
	//
	//	script.linux:       OS scope
	//	script.hide:        hidden from previews and verbose echo
	//	depends.parallel:   parallel dependency fan-out
	//	logs.json:          JSON log format
	Directive struct {
		Key DirectiveKey
		// Value is the raw directive value after the parse-time command
		// substitution pass. Multi-line blocks are joined with newlines.
		Value string
		// OS is the scope name ("" when unscoped).
		OS string
		// Hide marks hidden-output variants of hooks and env entries.
		Hide bool
		// Parallel marks a depends directive for parallel execution.
		Parallel bool
		// Format is the logs format (text or json); empty means text.
		Format string
		// EnvName is the variable name of an env NAME = value directive.
		// Empty for env_file directives.
		EnvName string
		// File is the source file the directive was parsed from, used to
		// resolve relative paths and to point diagnostics at the right
		// include.
		File string
		// Line is the 1-based source line of the directive.
		Line int
	}

	// Hook is a resolved lifecycle script with its hide flag.
	Hook struct {
		Value string
		Hide  bool
	}

	// LogSpec is the resolved logging target of a command.
	LogSpec struct {
		Path   string
		Format string
	}

	// ValidateRule is one parsed validate directive.
	// Exactly one of Pattern or List is set.
	ValidateRule struct {
		// Target is the value under validation: an argument name, or an
		// environment lookup when prefixed with '$'.
		Target string
		// Pattern is the regular expression of a "matches" rule, already
		// carrying its inline flags, or "".
		Pattern string
		// List holds the allowed values of an "in" rule.
		List []string
	}

	// Resolver answers precedence lookups over one command's directive
	// list. It is stateless: construct one per command (or per merged
	// list) and query it freely. OS-scoped entries matching the resolver's
	// OS outscore unscoped entries of the same key; ties keep the
	// first-seen entry.
	Resolver struct {
		directives []Directive
		os         string
	}
)

// NewResolver creates a Resolver over a directive list for the current OS.
func NewResolver(directives []Directive) *Resolver {
	return NewResolverForOS(directives, CurrentOS())
}

// NewResolverForOS creates a Resolver that scores OS-scoped directives
// against the given OS name. Tests use this to pin the platform.
func NewResolverForOS(directives []Directive, os string) *Resolver {
	return &Resolver{directives: directives, os: os}
}

// score rates how well a directive applies on the resolver's OS:
// 0 = does not apply, 1 = unscoped, 2 = OS or family match.
func (r *Resolver) score(d *Directive) int {
	if d.OS == "" {
		return 1
	}
	if OSMatches(d.OS, r.os) {
		return 2
	}
	return 0
}

// Get returns the highest-scoring directive for key, or nil when no
// applicable entry exists. First-seen wins on ties.
func (r *Resolver) Get(key DirectiveKey) *Directive {
	var best *Directive
	bestScore := 0
	for i := range r.directives {
		d := &r.directives[i]
		if d.Key != key {
			continue
		}
		if s := r.score(d); s > bestScore {
			best, bestScore = d, s
		}
	}
	return best
}

// all returns every applicable directive for key in declaration order.
func (r *Resolver) all(key DirectiveKey) []*Directive {
	var out []*Directive
	for i := range r.directives {
		d := &r.directives[i]
		if d.Key == key && r.score(d) > 0 {
			out = append(out, d)
		}
	}
	return out
}

// Hook resolves one of the four lifecycle hooks (before, after, fallback,
// finally) or the main script.
func (r *Resolver) Hook(key DirectiveKey) (Hook, bool) {
	d := r.Get(key)
	if d == nil {
		return Hook{}, false
	}
	return Hook{Value: d.Value, Hide: d.Hide}, true
}

// Desc returns the command description, or "".
func (r *Resolver) Desc() types.DescriptionText {
	if d := r.Get(DirDesc); d != nil {
		return types.DescriptionText(d.Value)
	}
	return ""
}

// Cwd returns the resolved working directory, or "".
func (r *Resolver) Cwd() string {
	if d := r.Get(DirCwd); d != nil {
		return d.Value
	}
	return ""
}

// Env returns the applicable env NAME = value directives, one per name in
// first-seen order. OS-scoped entries outscore unscoped entries of the
// same name, mirroring Get.
func (r *Resolver) Env() []*Directive {
	var order []string
	best := make(map[string]*Directive)
	scores := make(map[string]int)
	for _, d := range r.all(DirEnv) {
		if d.EnvName == "" {
			continue
		}
		s := r.score(d)
		if prev, ok := scores[d.EnvName]; !ok {
			order = append(order, d.EnvName)
			best[d.EnvName], scores[d.EnvName] = d, s
		} else if s > prev {
			best[d.EnvName], scores[d.EnvName] = d, s
		}
	}
	out := make([]*Directive, 0, len(order))
	for _, name := range order {
		out = append(out, best[name])
	}
	return out
}

// EnvFiles returns every applicable env_file directive in order. The
// full directive is returned so callers can resolve relative paths
// against the file the directive came from.
func (r *Resolver) EnvFiles() []*Directive {
	return r.all(DirEnvFile)
}

// Depends returns the parsed dependency list and its parallel flag.
// The boolean result is false when the command declares no dependencies.
func (r *Resolver) Depends() ([]Dependency, bool, error) {
	d := r.Get(DirDepends)
	if d == nil {
		return nil, false, nil
	}
	deps, err := ParseDependencyList(d.Value)
	if err != nil {
		return nil, false, fmt.Errorf("depends: %w", err)
	}
	return deps, d.Parallel, nil
}

// Privileged reports whether the command requires elevated privileges.
func (r *Resolver) Privileged() bool {
	d := r.Get(DirPrivileged)
	if d == nil {
		return false
	}
	v := strings.TrimSpace(d.Value)
	return v == "" || strings.EqualFold(v, "true")
}

// Logs returns the resolved log target, or ok=false when logging is not
// configured.
func (r *Resolver) Logs() (LogSpec, bool) {
	d := r.Get(DirLogs)
	if d == nil {
		return LogSpec{}, false
	}
	format := d.Format
	if format == "" {
		format = LogFormatText
	}
	return LogSpec{Path: d.Value, Format: format}, true
}

// RequireConfirm returns the confirmation prompt message, or ok=false.
func (r *Resolver) RequireConfirm() (string, bool) {
	d := r.Get(DirRequireConfirm)
	if d == nil {
		return "", false
	}
	return d.Value, true
}

// ValidateRules returns every applicable validate rule, parsed. Unlike the
// single-winner accessors, validation collects all rules: every one of them
// must pass.
func (r *Resolver) ValidateRules() ([]ValidateRule, error) {
	var rules []ValidateRule
	for _, d := range r.all(DirValidate) {
		rule, err := ParseValidateRule(d.Value)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// Shell returns the shell program configured for the command's scripts,
// or "" to use the tool default.
func (r *Resolver) Shell() string {
	if d := r.Get(DirShell); d != nil {
		return strings.TrimSpace(d.Value)
	}
	return ""
}

// Watch returns the watch patterns declared on the command.
func (r *Resolver) Watch() []string {
	d := r.Get(DirWatch)
	if d == nil {
		return nil
	}
	if v, err := ParseLiteralStatic(d.Value); err == nil && v.Kind == ValueArray {
		return v.Arr
	}
	return strings.Fields(d.Value)
}

// Conditions returns the if/elif/else guard chain in declaration order.
func (r *Resolver) Conditions() []*Directive {
	var out []*Directive
	for i := range r.directives {
		d := &r.directives[i]
		switch d.Key {
		case DirIf, DirElif, DirElse:
			if r.score(d) > 0 {
				out = append(out, d)
			}
		}
	}
	return out
}

// ParseValidateRule parses a validate directive value. Two forms exist:
//
//	target matches /pattern/flags
//	target in [a, b, c]
func ParseValidateRule(s string) (ValidateRule, error) {
	s = strings.TrimSpace(s)
	target, rest, found := strings.Cut(s, " ")
	if !found {
		return ValidateRule{}, fmt.Errorf("invalid validate rule %q: expected 'target matches /../' or 'target in [..]'", s)
	}
	rest = strings.TrimSpace(rest)
	switch {
	case strings.HasPrefix(rest, "matches "):
		pat := strings.TrimSpace(strings.TrimPrefix(rest, "matches "))
		if len(pat) < 2 || !strings.HasPrefix(pat, "/") {
			return ValidateRule{}, fmt.Errorf("invalid validate pattern %q: expected /pattern/[flags]", pat)
		}
		end := strings.LastIndex(pat, "/")
		if end == 0 {
			return ValidateRule{}, fmt.Errorf("invalid validate pattern %q: unterminated /pattern/", pat)
		}
		expr := pat[1:end]
		if flags := pat[end+1:]; flags != "" {
			expr = "(?" + flags + ")" + expr
		}
		return ValidateRule{Target: target, Pattern: expr}, nil
	case strings.HasPrefix(rest, "in "):
		listText := strings.TrimSpace(strings.TrimPrefix(rest, "in "))
		v, err := ParseLiteralStatic(listText)
		if err != nil || v.Kind != ValueArray {
			return ValidateRule{}, fmt.Errorf("invalid validate list %q: expected [a, b, ...]", listText)
		}
		return ValidateRule{Target: target, List: v.Arr}, nil
	default:
		return ValidateRule{}, fmt.Errorf("invalid validate rule %q: unknown operator", s)
	}
}
