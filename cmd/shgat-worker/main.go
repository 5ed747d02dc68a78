// Command shgat-worker services exactly one batch-training request read
// from stdin and writes exactly one response to stdout (spec §5/§6.3): the
// host spawns one of these per batch, hands it a graph snapshot and current
// parameters, and atomically swaps in the returned parameters itself.
package main

import (
	"log"
	"os"

	"github.com/iamthegreatdestroyer/shgat-engine/internal/shgat"
)

func main() {
	if err := shgat.RunBatchTrainWorker(os.Stdin, os.Stdout); err != nil {
		log.Fatalf("shgat-worker: %v", err)
	}
}
