// SPDX-License-Identifier: MPL-2.0

// Package include flattens @include directives into the single manifest
// string the core parser consumes.
//
//	@include ./tasks.grove
//	@include tasks/*.grove into vendor
//	@include https://example.com/common.grove from build,test
//
// Targets may be files, doublestar globs, directories (resolving to the
// grovefile inside), or https URLs. Each contributed chunk is preceded
// by a "# @source:" marker so the parser can attribute relative paths to
// the file that declared them. An include chain that revisits a target
// fails with IncludeCycleError.
package include
