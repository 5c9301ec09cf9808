// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/grovecli/grove/pkg/grovefile"
)

// now is a seam so tests can pin log timestamps.
var now = time.Now

// logEntry is one appended record of a finished run.
type logEntry struct {
	Timestamp string            `json:"timestamp"`
	Command   string            `json:"command"`
	Args      map[string]string `json:"args"`
	Success   bool              `json:"success"`
	Error     string            `json:"error"`
}

// text renders the entry in the text log format:
//
//	[<timestamp>] Command: <path>
//	Args: k=v,...
//	Status: SUCCESS|FAILED
//	Error: <message>
//
// The Args and Error lines appear only when non-empty.
func (e logEntry) text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] Command: %s\n", e.Timestamp, e.Command)
	if len(e.Args) > 0 {
		pairs := make([]string, 0, len(e.Args))
		for _, k := range slices.Sorted(maps.Keys(e.Args)) {
			pairs = append(pairs, k+"="+e.Args[k])
		}
		fmt.Fprintf(&b, "Args: %s\n", strings.Join(pairs, ","))
	}
	if e.Success {
		b.WriteString("Status: SUCCESS\n")
	} else {
		b.WriteString("Status: FAILED\n")
	}
	if e.Error != "" {
		fmt.Fprintf(&b, "Error: %s\n", e.Error)
	}
	return b.String()
}

// writeLog appends one entry describing the run outcome. The target path
// is template processed; relative paths land next to the manifest.
func (x *execution) writeLog(spec grovefile.LogSpec, outcome error) error {
	path, err := x.processText(spec.Path)
	if err != nil {
		return fmt.Errorf("logs: %w", err)
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("logs: empty target path")
	}
	path = filepath.FromSlash(path)
	if !filepath.IsAbs(path) {
		path = filepath.Join(x.rt.manifestDir(), path)
	}

	entry := x.logRecord(outcome)
	var data []byte
	if spec.Format == grovefile.LogFormatJSON {
		data, err = json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("logs: %w", err)
		}
		data = append(data, '\n')
	} else {
		data = []byte(entry.text())
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("logs: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("logs: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("logs: %w", err)
	}
	return nil
}

func (x *execution) logRecord(outcome error) logEntry {
	e := logEntry{
		Timestamp: now().Format(time.RFC3339),
		Command:   x.path,
		Args:      x.args,
		Success:   outcome == nil,
	}
	if e.Args == nil {
		e.Args = map[string]string{}
	}
	if outcome != nil {
		e.Error = outcome.Error()
	}
	return e
}
