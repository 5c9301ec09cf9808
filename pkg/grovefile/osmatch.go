// SPDX-License-Identifier: MPL-2.0

package grovefile

import "runtime"

// OS scope names accepted on directive modifiers. Centralizes the GOOS
// string literals so they are not scattered through the resolver.
const (
	OSLinux     = "linux"
	OSDarwin    = "darwin"
	OSWindows   = "windows"
	OSFreeBSD   = "freebsd"
	OSOpenBSD   = "openbsd"
	OSNetBSD    = "netbsd"
	OSDragonfly = "dragonfly"

	// OSFamilyUnix matches every supported non-Windows system.
	OSFamilyUnix = "unix"
	// OSFamilyBSD matches the BSD descendants.
	OSFamilyBSD = "bsd"

	// osAliasMacOS is accepted in manifests as a friendlier name for darwin.
	osAliasMacOS = "macos"
)

// knownOSNames is the closed set of names valid as a directive OS scope.
var knownOSNames = map[string]bool{
	OSLinux:      true,
	OSDarwin:     true,
	OSWindows:    true,
	OSFreeBSD:    true,
	OSOpenBSD:    true,
	OSNetBSD:     true,
	OSDragonfly:  true,
	OSFamilyUnix: true,
	OSFamilyBSD:  true,
	osAliasMacOS: true,
}

// IsOSName reports whether name is a recognized OS scope or family name.
func IsOSName(name string) bool { return knownOSNames[name] }

// CurrentOS returns the canonical OS name for the running system.
func CurrentOS() string { return runtime.GOOS }

// OSMatches reports whether a directive scoped to scope applies on the
// given OS. An exact name matches itself; "macos" aliases darwin; the
// "unix" family matches everything except windows; the "bsd" family
// matches the four BSDs.
func OSMatches(scope, os string) bool {
	switch scope {
	case "":
		return true
	case os:
		return true
	case osAliasMacOS:
		return os == OSDarwin
	case OSFamilyUnix:
		return os != OSWindows
	case OSFamilyBSD:
		return os == OSFreeBSD || os == OSOpenBSD || os == OSNetBSD || os == OSDragonfly
	default:
		return false
	}
}
