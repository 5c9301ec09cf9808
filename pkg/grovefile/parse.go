// SPDX-License-Identifier: MPL-2.0

package grovefile

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// indentWidth is the number of spaces in one depth unit.
const indentWidth = 4

// SourceMarker introduces the file-attribution comments the include
// layer interleaves into flattened manifest text. The parser consumes
// marker lines and attributes everything that follows to the named file.
const SourceMarker = "# @source:"

// legacyMarker is the retired body-line prefix. Lines written in that
// form fail the parse outright.
const legacyMarker = "> "

type (
	// Parser turns manifest text into a Manifest tree.
	//
	// Parsing is impure on purpose: embedded $(...) spans in assignment
	// values and parameter defaults run through the configured Evaluator
	// while the text is being read. A Parser without an evaluator leaves
	// those spans untouched, which static inspection relies on.
	Parser struct {
		eval Evaluator
	}

	// ParserOption configures a Parser.
	ParserOption func(*Parser)

	// srcLine is one pre-scanned input line.
	srcLine struct {
		raw    string
		num    int
		spaces int
		blank  bool
		tab    bool
	}

	// parseState carries the cursor and accumulators of one Parse call.
	parseState struct {
		eval  Evaluator
		lines []srcLine
		pos   int
		file  string
		man   *Manifest
	}
)

// WithEvaluator sets the shell evaluator used for parse-time $(...)
// substitution.
func WithEvaluator(eval Evaluator) ParserOption {
	return func(p *Parser) { p.eval = eval }
}

// NewParser creates a Parser.
func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseFile reads and parses a manifest file.
func (p *Parser) ParseFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	man, err := p.parse(string(data), path)
	if err != nil {
		return nil, err
	}
	man.Path = path
	return man, nil
}

// Parse parses manifest text. Source attribution comes from interleaved
// marker comments when present.
func (p *Parser) Parse(text string) (*Manifest, error) {
	return p.parse(text, "")
}

func (p *Parser) parse(text, file string) (*Manifest, error) {
	s := &parseState{
		eval:  p.eval,
		lines: scanLines(text),
		file:  file,
		man:   &Manifest{Functions: map[string]*Function{}},
	}
	if err := s.parseScope(0, nil); err != nil {
		return nil, err
	}
	s.man.rewire()
	return s.man, nil
}

// scanLines splits text into lines and measures their leading whitespace.
func scanLines(text string) []srcLine {
	raw := strings.Split(text, "\n")
	lines := make([]srcLine, len(raw))
	for i, r := range raw {
		ln := srcLine{raw: strings.TrimRight(r, "\r"), num: i + 1}
		ln.blank = strings.TrimSpace(ln.raw) == ""
		for j := 0; j < len(ln.raw); j++ {
			if ln.raw[j] == ' ' {
				ln.spaces++
				continue
			}
			if ln.raw[j] == '\t' {
				ln.tab = true
			}
			break
		}
		lines[i] = ln
	}
	return lines
}

func (s *parseState) errf(line int, format string, args ...any) error {
	return &ParseError{File: s.file, Line: line, Err: fmt.Errorf(format, args...)}
}

// depth validates a line's indentation against the 4-space grid and
// returns its depth in units.
func (s *parseState) depth(ln srcLine) (int, error) {
	if ln.tab {
		return 0, s.errf(ln.num, "%w: tab in indentation", ErrIndent)
	}
	if ln.spaces%indentWidth != 0 {
		return 0, s.errf(ln.num, "%w: indentation must be a multiple of %d spaces", ErrIndent, indentWidth)
	}
	return ln.spaces / indentWidth, nil
}

// parseScope consumes every line belonging to the scope at the given
// depth. A nil cmd targets the manifest's global scope; otherwise lines
// land on the command. Returns at the first shallower line or at EOF.
func (s *parseState) parseScope(depth int, cmd *Command) error {
	consts := map[string]bool{}
	for s.pos < len(s.lines) {
		ln := s.lines[s.pos]
		if ln.blank {
			s.pos++
			continue
		}
		trimmed := strings.TrimSpace(ln.raw)
		if strings.HasPrefix(trimmed, SourceMarker) {
			s.file = strings.TrimSpace(trimmed[len(SourceMarker):])
			s.pos++
			continue
		}
		if strings.HasPrefix(trimmed, "#") {
			s.pos++
			continue
		}
		d, err := s.depth(ln)
		if err != nil {
			return err
		}
		if d < depth {
			return nil
		}
		if d > depth {
			return s.errf(ln.num, "%w: unexpected indent", ErrIndent)
		}
		body := ln.raw[ln.spaces:]

		switch {
		case strings.HasPrefix(body, legacyMarker):
			return s.errf(ln.num, "%w: the %q line prefix is no longer supported", ErrDeprecatedSyntax, strings.TrimSpace(legacyMarker))
		case strings.HasPrefix(body, "var "):
			if err := s.parseAssignment(ln, body[len("var "):], false, cmd, consts); err != nil {
				return err
			}
		case strings.HasPrefix(body, "const "):
			if err := s.parseAssignment(ln, body[len("const "):], true, cmd, consts); err != nil {
				return err
			}
		case strings.HasPrefix(body, "env ") || strings.HasPrefix(body, "env."):
			if err := s.parseEnvLine(ln, body, cmd); err != nil {
				return err
			}
		case strings.HasPrefix(body, "function "):
			if err := s.parseFunction(ln, body[len("function "):], depth); err != nil {
				return err
			}
		default:
			isHeader, err := looksLikeHeader(body)
			if err != nil {
				return s.errf(ln.num, "%w: %s", ErrSyntax, err)
			}
			if isHeader {
				child, err := s.parseCommand(ln, body, depth)
				if err != nil {
					return err
				}
				if cmd == nil {
					s.man.Commands = append(s.man.Commands, child)
				} else {
					cmd.AddChild(child)
				}
				continue
			}
			if cmd == nil {
				return s.errf(ln.num, "%w: expected a command header, assignment, or env line", ErrSyntax)
			}
			if err := s.parseDirective(ln, body, depth, cmd); err != nil {
				return err
			}
		}
	}
	return nil
}

// looksLikeHeader distinguishes a command header from a directive line:
// a header's '(' comes before any ':'.
func looksLikeHeader(body string) (bool, error) {
	paren := indexOutsideQuotes(body, '(')
	colon := indexOutsideQuotes(body, ':')
	switch {
	case paren >= 0 && (colon < 0 || paren < colon):
		return true, nil
	case colon >= 0:
		return false, nil
	default:
		return false, fmt.Errorf("expected %q or a directive on %q", "name(...):", body)
	}
}

func indexOutsideQuotes(s string, c byte) int {
	var quote byte
	for i := 0; i < len(s); i++ {
		switch {
		case quote != 0:
			if s[i] == quote {
				quote = 0
			}
		case s[i] == '"' || s[i] == '\'':
			quote = s[i]
		case s[i] == c:
			return i
		}
	}
	return -1
}

// parseAssignment handles one var or const line.
func (s *parseState) parseAssignment(ln srcLine, rest string, isConst bool, cmd *Command, consts map[string]bool) error {
	name, raw, found := strings.Cut(rest, "=")
	if !found {
		return s.errf(ln.num, "%w: expected NAME = value", ErrSyntax)
	}
	name = strings.TrimSpace(name)
	if !validIdent(name) {
		return s.errf(ln.num, "%w: bad name %q in assignment", ErrSyntax, name)
	}
	if isConst {
		if consts[name] {
			return s.errf(ln.num, "%w: constant %q redefined", ErrSyntax, name)
		}
		consts[name] = true
	}
	val, err := ParseLiteral(raw, s.eval)
	if err != nil {
		return s.errf(ln.num, "%w: %w", ErrSyntax, err)
	}
	a := Assignment{Name: name, Value: val, Const: isConst, Line: ln.num}
	switch {
	case cmd == nil && isConst:
		s.man.Consts = append(s.man.Consts, a)
	case cmd == nil:
		s.man.Vars = append(s.man.Vars, a)
	case isConst:
		cmd.Consts = append(cmd.Consts, a)
	default:
		cmd.Vars = append(cmd.Vars, a)
	}
	s.pos++
	return nil
}

// parseEnvLine handles env NAME = value and env <path>, with the optional
// hide modifier. Global env lines apply to every command in the manifest.
func (s *parseState) parseEnvLine(ln srcLine, body string, cmd *Command) error {
	rest := body[len("env"):]
	hide := false
	if strings.HasPrefix(rest, ".") {
		mod, after, _ := strings.Cut(rest[1:], " ")
		if mod != "hide" {
			return s.errf(ln.num, "%w: unknown env modifier %q", ErrSyntax, mod)
		}
		hide = true
		rest = after
	}
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return s.errf(ln.num, "%w: expected env NAME = value or env <path>", ErrSyntax)
	}
	d := Directive{Hide: hide, File: s.file, Line: ln.num}
	if name, raw, found := strings.Cut(rest, "="); found {
		name = strings.TrimSpace(name)
		if !validIdent(name) {
			return s.errf(ln.num, "%w: bad environment variable name %q", ErrSyntax, name)
		}
		value, err := ExpandSubstitutions(strings.TrimSpace(raw), s.eval)
		if err != nil {
			return s.errf(ln.num, "%w: %w", ErrSyntax, err)
		}
		d.Key, d.EnvName, d.Value = DirEnv, name, value
	} else {
		d.Key, d.Value = DirEnvFile, rest
	}
	if cmd == nil {
		s.man.Env = append(s.man.Env, d)
	} else {
		cmd.Directives = append(cmd.Directives, d)
	}
	s.pos++
	return nil
}

// parseFunction handles a function NAME(params): definition. The body is
// kept as raw template text, except that var lines are lifted into the
// function's locals. Functions hoist to the manifest table wherever they
// are defined; a later definition of the same name wins.
func (s *parseState) parseFunction(ln srcLine, rest string, depth int) error {
	name, params, err := s.parseSignature(ln, rest)
	if err != nil {
		return err
	}
	fn := &Function{Name: name, Params: params, Line: ln.num}

	var body []string
	bodyIndent := (depth + 1) * indentWidth
	for s.pos < len(s.lines) {
		bl := s.lines[s.pos]
		if bl.blank {
			body = append(body, "")
			s.pos++
			continue
		}
		if bl.spaces < bodyIndent {
			break
		}
		text := bl.raw[bodyIndent:]
		if after, ok := strings.CutPrefix(strings.TrimSpace(text), "var "); ok {
			a, err := s.parseFunctionVar(bl, after)
			if err != nil {
				return err
			}
			fn.Vars = append(fn.Vars, a)
		} else {
			body = append(body, text)
		}
		s.pos++
	}
	for len(body) > 0 && body[len(body)-1] == "" {
		body = body[:len(body)-1]
	}
	fn.Body = strings.Join(body, "\n")
	s.man.Functions[name] = fn
	return nil
}

func (s *parseState) parseFunctionVar(ln srcLine, rest string) (Assignment, error) {
	name, raw, found := strings.Cut(rest, "=")
	if !found {
		return Assignment{}, s.errf(ln.num, "%w: expected var NAME = value", ErrSyntax)
	}
	name = strings.TrimSpace(name)
	if !validIdent(name) {
		return Assignment{}, s.errf(ln.num, "%w: bad name %q in assignment", ErrSyntax, name)
	}
	val, err := ParseLiteral(raw, s.eval)
	if err != nil {
		return Assignment{}, s.errf(ln.num, "%w: %w", ErrSyntax, err)
	}
	return Assignment{Name: name, Value: val, Line: ln.num}, nil
}

// parseCommand handles one command header and its indented body.
func (s *parseState) parseCommand(ln srcLine, body string, depth int) (*Command, error) {
	name, params, err := s.parseSignature(ln, body)
	if err != nil {
		return nil, err
	}
	cmd := &Command{Name: name, Params: params, SourceFile: s.file, Line: ln.num}
	if err := s.parseScope(depth+1, cmd); err != nil {
		return nil, err
	}
	return cmd, nil
}

// parseSignature reads name(params): starting at the current line,
// joining continuation lines while the parenthesis group stays open.
// The cursor advances past every consumed line.
func (s *parseState) parseSignature(ln srcLine, text string) (string, []Parameter, error) {
	open := indexOutsideQuotes(text, '(')
	if open < 0 {
		return "", nil, s.errf(ln.num, "%w: expected %q", ErrSyntax, "name(...):")
	}
	name := strings.TrimSpace(text[:open])
	if !validIdent(name) {
		return "", nil, s.errf(ln.num, "%w: bad command name %q", ErrSyntax, name)
	}
	s.pos++
	for closingParen(text) < 0 {
		if s.pos >= len(s.lines) {
			return "", nil, s.errf(ln.num, "%w: unbalanced parenthesis in signature of %q", ErrUnexpectedEOF, name)
		}
		text += " " + strings.TrimSpace(s.lines[s.pos].raw)
		s.pos++
	}
	closing := closingParen(text)
	after := strings.TrimSpace(text[closing+1:])
	if !strings.HasPrefix(after, ":") {
		return "", nil, s.errf(ln.num, "%w: expected ':' after signature of %q", ErrSyntax, name)
	}
	if rest := strings.TrimSpace(after[1:]); rest != "" && !strings.HasPrefix(rest, "#") {
		return "", nil, s.errf(ln.num, "%w: unexpected text after signature of %q", ErrSyntax, name)
	}
	params, err := s.parseParams(ln, text[open+1:closing])
	if err != nil {
		return "", nil, err
	}
	return name, params, nil
}

// closingParen returns the index of the parenthesis closing the first
// quote-aware balanced group, or -1 while the group is still open.
func closingParen(text string) int {
	var quote byte
	depth := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// parseParams parses the comma-separated parameter list of a signature.
func (s *parseState) parseParams(ln srcLine, text string) ([]Parameter, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	var params []Parameter
	for _, part := range splitTopLevel(text, ',') {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, s.errf(ln.num, "%w: empty parameter declaration", ErrSyntax)
		}
		p, err := s.parseParam(ln, part)
		if err != nil {
			return nil, err
		}
		params = append(params, p)
	}
	if err := ValidateSignature(params); err != nil {
		return nil, s.errf(ln.num, "%w: %w", ErrSyntax, err)
	}
	return params, nil
}

// parseParam parses one declaration: [!]name[|alias][: type][= default],
// or a wildcard *, *name, *[N], *name[N].
func (s *parseState) parseParam(ln srcLine, part string) (Parameter, error) {
	if strings.HasPrefix(part, "*") {
		return s.parseWildcard(ln, part)
	}
	p := Parameter{Type: ParamString}
	if strings.HasPrefix(part, "!") {
		p.Named = true
		part = strings.TrimSpace(part[1:])
	}
	head := part
	if eq := indexOutsideQuotes(part, '='); eq >= 0 {
		head = strings.TrimSpace(part[:eq])
		val, err := ParseLiteral(strings.TrimSpace(part[eq+1:]), s.eval)
		if err != nil {
			return Parameter{}, s.errf(ln.num, "%w: %w", ErrSyntax, err)
		}
		p.Default = &val
	}
	if name, typ, found := strings.Cut(head, ":"); found {
		typ = strings.TrimSpace(typ)
		if !validParamType(typ) {
			return Parameter{}, s.errf(ln.num, "%w: unknown parameter type %q", ErrSyntax, typ)
		}
		p.Type = ParamType(typ)
		head = strings.TrimSpace(name)
	}
	if name, alias, found := strings.Cut(head, "|"); found {
		alias = strings.TrimSpace(alias)
		if len(alias) != 1 {
			return Parameter{}, s.errf(ln.num, "%w: alias %q must be a single character", ErrSyntax, alias)
		}
		p.Alias = alias
		head = strings.TrimSpace(name)
	}
	if !validIdent(head) {
		return Parameter{}, s.errf(ln.num, "%w: bad parameter name %q", ErrSyntax, head)
	}
	p.Name = head
	return p, nil
}

// parseWildcard parses *, *name, *[N], and *name[N].
func (s *parseState) parseWildcard(ln srcLine, part string) (Parameter, error) {
	p := Parameter{Kind: ParamWildcard, Name: "*"}
	rest := part[1:]
	if i := strings.IndexByte(rest, '['); i >= 0 {
		if !strings.HasSuffix(rest, "]") {
			return Parameter{}, s.errf(ln.num, "%w: malformed wildcard %q", ErrSyntax, part)
		}
		n, err := strconv.Atoi(rest[i+1 : len(rest)-1])
		if err != nil || n < 1 {
			return Parameter{}, s.errf(ln.num, "%w: wildcard count in %q must be a positive integer", ErrSyntax, part)
		}
		p.Count = n
		rest = rest[:i]
	}
	if rest != "" {
		if !validIdent(rest) {
			return Parameter{}, s.errf(ln.num, "%w: bad wildcard capture name %q", ErrSyntax, rest)
		}
		p.Capture = rest
		p.Name = rest
	}
	return p, nil
}

// parseDirective handles one key[.modifier]: value line, reading a
// multi-line block when the value is exactly "|".
func (s *parseState) parseDirective(ln srcLine, body string, depth int, cmd *Command) error {
	keySpec, rawValue, _ := strings.Cut(body, ":")
	d, err := s.parseDirectiveKey(ln, strings.TrimSpace(keySpec))
	if err != nil {
		return err
	}
	d.Value = strings.TrimSpace(rawValue)
	s.pos++
	if d.Value == "|" {
		block, err := s.readBlock(ln, depth)
		if err != nil {
			return err
		}
		d.Value = block
	}
	cmd.Directives = append(cmd.Directives, d)
	return nil
}

// parseDirectiveKey splits key.modifier.modifier and validates each part.
// Modifiers are order-insensitive: an OS name, hide, parallel (depends
// only), or json/text (logs only).
func (s *parseState) parseDirectiveKey(ln srcLine, keySpec string) (Directive, error) {
	parts := strings.Split(keySpec, ".")
	key := DirectiveKey(parts[0])
	if !knownDirectiveKeys[key] {
		return Directive{}, s.errf(ln.num, "%w: unknown directive key %q", ErrSyntax, parts[0])
	}
	d := Directive{Key: key, File: s.file, Line: ln.num}
	for _, mod := range parts[1:] {
		switch {
		case mod == "hide":
			d.Hide = true
		case mod == "parallel" && key == DirDepends:
			d.Parallel = true
		case (mod == LogFormatJSON || mod == LogFormatText) && key == DirLogs:
			d.Format = mod
		case IsOSName(mod):
			if d.OS != "" {
				return Directive{}, s.errf(ln.num, "%w: directive %q scoped to two operating systems", ErrSyntax, keySpec)
			}
			d.OS = mod
		default:
			return Directive{}, s.errf(ln.num, "%w: unknown modifier %q on directive %q", ErrSyntax, mod, parts[0])
		}
	}
	return d, nil
}

// readBlock collects the indented block following a "|" value. Content
// sits one level deeper than the directive; that one level is stripped,
// deeper indentation is preserved. The block ends at the first non-blank
// line at or above the directive's depth. Trailing blank lines are
// dropped.
func (s *parseState) readBlock(ln srcLine, depth int) (string, error) {
	indent := (depth + 1) * indentWidth
	var content []string
	for s.pos < len(s.lines) {
		bl := s.lines[s.pos]
		if bl.blank {
			content = append(content, "")
			s.pos++
			continue
		}
		if bl.spaces < indent {
			break
		}
		content = append(content, bl.raw[indent:])
		s.pos++
	}
	for len(content) > 0 && content[len(content)-1] == "" {
		content = content[:len(content)-1]
	}
	if len(content) == 0 {
		return "", s.errf(ln.num, "%w: block opened with %q has no content", ErrUnexpectedEOF, "|")
	}
	return strings.Join(content, "\n"), nil
}
