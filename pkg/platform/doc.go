// SPDX-License-Identifier: MPL-2.0

// Package platform centralizes runtime.GOOS comparisons.
//
// The constants here cover the operating systems grove special-cases when
// locating configuration directories and choosing a fallback shell. Manifest
// level OS matching (the os modifier in a grovefile) has its own vocabulary
// in pkg/grovefile and is deliberately kept separate from these values.
package platform
