// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/extlaunch/extlaunch/cmd/extlaunch"

func main() {
	cmd.Execute()
}
