// Command shgatctl is a command-line client for a running shgat-engine
// server: insert tools/capabilities, score an intent, submit a training
// example, or export/import the parameter blob, plus an interactive repl.
package main

import "github.com/iamthegreatdestroyer/shgat-engine/cmd/shgatctl/cmd"

func main() {
	cmd.Execute()
}
