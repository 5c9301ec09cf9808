// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/grovecli/grove/internal/template"
	"github.com/grovecli/grove/pkg/grovefile"
)

// hostEnviron returns the process environment. Options.Environ replaces
// it in tests.
func hostEnviron() []string { return os.Environ() }

// environMap splits KEY=VALUE pairs into a map. Later entries win.
func environMap(environ []string) map[string]string {
	m := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			m[k] = v
		}
	}
	return m
}

// execEnv is the child environment assembled for one invocation: the
// host environment plus every manifest contribution, with assignment
// order and hide flags retained for previews.
type execEnv struct {
	vars     map[string]string
	hidden   map[string]bool
	assigned []string
}

func newExecEnv(base map[string]string) *execEnv {
	vars := make(map[string]string, len(base)+8)
	maps.Copy(vars, base)
	return &execEnv{vars: vars, hidden: make(map[string]bool)}
}

// set records one manifest-assigned variable. Reassignment keeps the
// name's original position and takes the latest hide flag.
func (e *execEnv) set(name, value string, hide bool) {
	if !slices.Contains(e.assigned, name) {
		e.assigned = append(e.assigned, name)
	}
	e.vars[name] = value
	e.hidden[name] = hide
}

// get looks a name up in the assembled environment.
func (e *execEnv) get(name string) (string, bool) {
	v, ok := e.vars[name]
	return v, ok
}

// slice renders the environment as sorted KEY=VALUE pairs.
func (e *execEnv) slice() []string { return EnvSlice(e.vars) }

// chainFor returns the commands along path, root first. The chain is
// computed by walking the manifest tree segment by segment, so it always
// mirrors the path an invocation names. A nil result means the path does
// not resolve.
func chainFor(m *grovefile.Manifest, path string) []*grovefile.Command {
	segs := strings.Split(path, grovefile.PathSeparator)
	chain := make([]*grovefile.Command, 0, len(segs))
	scope := m.Commands
	for _, seg := range segs {
		var next *grovefile.Command
		for _, c := range scope {
			if c.Name == seg {
				next = c
				break
			}
		}
		if next == nil {
			return nil
		}
		chain = append(chain, next)
		scope = next.Children
	}
	return chain
}

// buildScope folds the global, ancestor, and local assignments with the
// bound arguments into the template scope of this invocation.
func (x *execution) buildScope() {
	layers := template.Layers{
		GlobalConsts: x.rt.man.Consts,
		GlobalVars:   x.rt.man.Vars,
		Args:         x.args,
		ParentArgs:   x.parentArgs,
	}
	for _, anc := range x.chain[:len(x.chain)-1] {
		layers.ParentConsts = append(layers.ParentConsts, anc.Consts...)
		layers.ParentVars = append(layers.ParentVars, anc.Vars...)
	}
	self := x.chain[len(x.chain)-1]
	layers.LocalConsts = self.Consts
	layers.LocalVars = self.Vars
	x.scope = template.Build(layers, x.eval)
}

// assembleEnv builds the child environment: host environment, file-scope
// env entries, then each chain level root to self with self winning per
// key, exported assignments, argument variables, and the call-stack
// guard. Env files and substitutions run here, after the confirmation
// gate.
func (x *execution) assembleEnv() error {
	x.env = newExecEnv(environMap(x.rt.environ()))
	if len(x.rt.man.Env) > 0 {
		res := grovefile.NewResolverForOS(x.rt.man.Env, x.rt.os)
		if err := x.applyEnvLevel(res); err != nil {
			return err
		}
	}
	for _, cmd := range x.chain {
		res := grovefile.NewResolverForOS(cmd.Directives, x.rt.os)
		if err := x.applyEnvLevel(res); err != nil {
			return err
		}
	}
	if err := x.exportAssignments(); err != nil {
		return err
	}
	for _, name := range slices.Sorted(maps.Keys(x.args)) {
		if name == grovefile.WildcardName {
			continue
		}
		x.env.set(strings.ToUpper(name), x.args[name], false)
	}
	x.env.set(CallStackVar, x.guard.stackValue(), false)
	return x.resolveCwd()
}

// applyEnvLevel applies one level's env_file and env directives. Files
// load first; env lines override file values within the level.
func (x *execution) applyEnvLevel(res *grovefile.Resolver) error {
	for _, d := range res.EnvFiles() {
		pairs, err := loadEnvFile(d.Value, x.envFileBase(d))
		if err != nil {
			return err
		}
		for _, p := range pairs {
			x.env.set(p.Name, p.Value, false)
		}
	}
	for _, d := range res.Env() {
		v, err := x.processEnvValue(d.Value)
		if err != nil {
			return fmt.Errorf("env %s: %w", d.EnvName, err)
		}
		x.env.set(d.EnvName, v, d.Hide)
	}
	return nil
}

// envFileBase returns the directory relative env_file paths resolve
// against: the directory of the file that declared the directive, or
// the manifest directory.
func (x *execution) envFileBase(d *grovefile.Directive) string {
	if d.File != "" {
		return filepath.Dir(d.File)
	}
	return x.rt.manifestDir()
}

// processEnvValue renders an env directive value: literal typing and
// lazy-expression resolution first, placeholder substitution second.
func (x *execution) processEnvValue(raw string) (string, error) {
	v, err := grovefile.ParseLiteralStatic(raw)
	if err != nil {
		return "", err
	}
	s, err := v.Render(x.eval)
	if err != nil {
		return "", err
	}
	return x.processText(s)
}

// exportAssignments copies every visible assignment into the child
// environment: global scope first, then ancestors root to parent, then
// the command's own. Each name exports once, with the value the template
// scope resolves it to.
func (x *execution) exportAssignments() error {
	var names []string
	seen := make(map[string]bool)
	collect := func(batch []grovefile.Assignment) {
		for _, a := range batch {
			if !seen[a.Name] {
				seen[a.Name] = true
				names = append(names, a.Name)
			}
		}
	}
	collect(x.rt.man.Consts)
	collect(x.rt.man.Vars)
	for _, cmd := range x.chain {
		collect(cmd.Consts)
		collect(cmd.Vars)
	}
	for _, name := range names {
		v, ok, err := x.scope.Lookup(name)
		if err != nil {
			return fmt.Errorf("export %s: %w", name, err)
		}
		if !ok {
			continue
		}
		out, err := x.processText(v)
		if err != nil {
			return fmt.Errorf("export %s: %w", name, err)
		}
		x.env.set(name, out, false)
	}
	return nil
}

// resolveCwd determines the working directory: the closest cwd directive
// from the command outward, template processed, with relative paths
// anchored at the manifest directory. Without a directive scripts run in
// the manifest directory.
func (x *execution) resolveCwd() error {
	if x.cwdRaw == "" {
		x.cwd = x.rt.manifestDir()
		return nil
	}
	p, err := x.processText(x.cwdRaw)
	if err != nil {
		return fmt.Errorf("cwd: %w", err)
	}
	p = strings.TrimSpace(p)
	if p == "" {
		x.cwd = x.rt.manifestDir()
		return nil
	}
	p = filepath.FromSlash(p)
	if !filepath.IsAbs(p) {
		p = filepath.Join(x.rt.manifestDir(), p)
	}
	x.cwd = p
	return nil
}
