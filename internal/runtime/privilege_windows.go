// SPDX-License-Identifier: MPL-2.0

//go:build windows

package runtime

import (
	"io"
	"os/exec"
)

// checkPrivilege verifies the process already runs elevated. The "net
// session" probe succeeds only from an elevated prompt; privileged
// commands never escalate on their own.
func checkPrivilege(path string) error {
	cmd := exec.Command("net", "session")
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	if err := cmd.Run(); err != nil {
		return &PrivilegeError{Path: path, Hint: "re-run from an elevated prompt"}
	}
	return nil
}
