// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for grove.
//
// This package implements the Cobra command hierarchy for the grove CLI:
// the root command, the run command with its manifest-derived subcommands,
// the diagnostic commands (list, check), scaffolding (init), configuration
// management, and shell completion.
package cmd
