// The main package for the toondex executable.
package main

import (
	"github.com/minsukl/toondex-ingest/cmd"
)

func main() {
	cmd.Execute()
}
