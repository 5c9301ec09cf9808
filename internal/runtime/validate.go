// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/grovecli/grove/pkg/grovefile"
)

// validate checks every applicable validate rule against its target.
// All rules must pass; the first failure aborts the run before any side
// effect.
func (x *execution) validate() error {
	rules, err := x.res.ValidateRules()
	if err != nil {
		return fmt.Errorf("%s: %w", x.path, err)
	}
	for _, rule := range rules {
		val, err := x.validateTarget(rule.Target)
		if err != nil {
			return err
		}
		switch {
		case rule.Pattern != "":
			re, err := regexp.Compile(rule.Pattern)
			if err != nil {
				return fmt.Errorf("%s: validate %s: %w", x.path, rule.Target, err)
			}
			if !re.MatchString(val) {
				return &ValidationError{
					Path:   x.path,
					Target: rule.Target,
					Reason: fmt.Sprintf("value %q does not match /%s/", val, rule.Pattern),
				}
			}
		default:
			if !slices.Contains(rule.List, val) {
				return &ValidationError{
					Path:   x.path,
					Target: rule.Target,
					Reason: fmt.Sprintf("value %q is not one of [%s]", val, strings.Join(rule.List, ", ")),
				}
			}
		}
	}
	return nil
}

// validateTarget resolves a rule target to the value under test: an
// argument by name, or for $-prefixed targets the session env, then the
// OS environment, then inherited variables, then global variables.
func (x *execution) validateTarget(target string) (string, error) {
	if name, ok := strings.CutPrefix(target, "$"); ok {
		v, found, err := x.lookupDollar(name)
		if err != nil {
			return "", err
		}
		if !found {
			return "", &ValidationError{Path: x.path, Target: target, Reason: "no such variable"}
		}
		return v, nil
	}
	v, ok := x.args[target]
	if !ok {
		return "", &ValidationError{Path: x.path, Target: target, Reason: "no argument with this name"}
	}
	return v, nil
}

func (x *execution) lookupDollar(name string) (string, bool, error) {
	if len(x.rt.man.Env) > 0 {
		res := grovefile.NewResolverForOS(x.rt.man.Env, x.rt.os)
		for _, d := range res.Env() {
			if d.EnvName == name {
				v, err := x.processEnvValue(d.Value)
				return v, true, err
			}
		}
	}
	if v, ok := environMap(x.rt.environ())[name]; ok {
		return v, true, nil
	}
	for i := len(x.chain) - 2; i >= 0; i-- {
		if a, ok := x.chain[i].LocalLookup(name); ok {
			return x.renderAssignment(a)
		}
	}
	if a, ok := x.rt.man.GlobalLookup(name); ok {
		return x.renderAssignment(a)
	}
	return "", false, nil
}

func (x *execution) renderAssignment(a *grovefile.Assignment) (string, bool, error) {
	v, err := a.Value.Render(x.eval)
	if err != nil {
		return "", true, err
	}
	out, err := x.processText(v)
	return out, true, err
}
