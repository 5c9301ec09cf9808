// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"fmt"
	"io"
	"strings"
)

// confirm prompts the require_confirm gate and reports whether the run
// was accepted. Only y/yes accept; anything else, including EOF, is a
// decline. Input is read byte by byte so nothing past the answer line is
// consumed from a shared stdin.
func (x *execution) confirm(message string) (bool, error) {
	message = strings.TrimSpace(message)
	if message != "" {
		processed, err := x.processText(message)
		if err != nil {
			return false, fmt.Errorf("require_confirm: %w", err)
		}
		message = processed
	} else {
		message = fmt.Sprintf("Run %s?", x.path)
	}
	fmt.Fprintf(x.rt.stderr(), "%s [y/N] ", message)
	line, err := readLine(x.rt.stdin())
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("read confirmation: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// readLine consumes bytes up to and including one newline.
func readLine(r io.Reader) (string, error) {
	var b strings.Builder
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if buf[0] == '\n' {
				return b.String(), nil
			}
			b.WriteByte(buf[0])
		}
		if err != nil {
			return b.String(), err
		}
	}
}
