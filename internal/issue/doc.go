// SPDX-License-Identifier: MPL-2.0

// Package issue carries the user-facing error surface: errors that name
// the failed operation and suggest fixes, plus a catalog of rendered
// Markdown guides for the failure modes a manifest run can hit.
package issue
