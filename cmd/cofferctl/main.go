// The cofferctl command provides a command-line interface for managing
// secrets stored in a Coffer server.
package main

import "github.com/coffersec/coffer/internal/cofferctl/cmd"

func main() {
	cmd.Execute()
}
