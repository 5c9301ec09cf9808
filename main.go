// SPDX-License-Identifier: MPL-2.0

package main

import (
	cmd "github.com/grovecli/grove/cmd/grove"
)

func main() {
	cmd.Execute()
}
