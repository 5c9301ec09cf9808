// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package runtime

import "os"

// checkPrivilege verifies the process already runs elevated. Privileged
// commands never escalate on their own; the check fails fast with
// guidance instead.
func checkPrivilege(path string) error {
	if os.Geteuid() == 0 {
		return nil
	}
	return &PrivilegeError{Path: path, Hint: "re-run with sudo"}
}
