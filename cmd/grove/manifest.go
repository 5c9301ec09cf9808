// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/grovecli/grove/internal/include"
	"github.com/grovecli/grove/internal/runtime"
	"github.com/grovecli/grove/pkg/grovefile"
)

// ErrNoManifest is returned when no grovefile exists in the current
// directory or any directory above it.
var ErrNoManifest = errors.New("no grovefile found")

// locateManifest resolves the grovefile to load: the --file override
// when set, otherwise the nearest grovefile walking upward from the
// current directory.
func locateManifest() (string, error) {
	if manifestFile != "" {
		abs, err := filepath.Abs(manifestFile)
		if err != nil {
			return "", fmt.Errorf("resolve --file: %w", err)
		}
		if _, err := os.Stat(abs); err != nil {
			return "", fmt.Errorf("grovefile %q: %w", manifestFile, err)
		}
		return abs, nil
	}

	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("determine working directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, grovefile.ManifestName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNoManifest
		}
		dir = parent
	}
}

// loadManifest flattens and parses the grovefile without an evaluator.
// Dynamic $(...) spans stay unevaluated, so the result is safe for
// static inspection: listing, checking, and completion.
func loadManifest() (*grovefile.Manifest, error) {
	return loadManifestWith(nil)
}

// loadManifestForRun parses the grovefile with a shell evaluator so
// embedded $(...) spans in assignments and defaults resolve, the way
// execution needs them.
func loadManifestForRun() (*grovefile.Manifest, error) {
	sh := runtime.ShellFor(currentConfig().Shell.String(), runtime.NewSystemShell())
	return loadManifestWith(runtime.Evaluator(sh))
}

func loadManifestWith(eval grovefile.Evaluator) (*grovefile.Manifest, error) {
	path, err := locateManifest()
	if err != nil {
		return nil, err
	}
	flat, err := include.Flatten(path)
	if err != nil {
		return nil, err
	}
	var opts []grovefile.ParserOption
	if eval != nil {
		opts = append(opts, grovefile.WithEvaluator(eval))
	}
	man, err := grovefile.NewParser(opts...).Parse(flat)
	if err != nil {
		return nil, err
	}
	man.Path = path
	man.Merge()
	return man, nil
}
