// SPDX-License-Identifier: MPL-2.0

package platform

import "runtime"

// OS name constants matching runtime.GOOS values.
const (
	Windows = "windows"
	Darwin  = "darwin"
	Linux   = "linux"
)

// IsWindows reports whether the current process runs on Windows.
func IsWindows() bool {
	return runtime.GOOS == Windows
}
