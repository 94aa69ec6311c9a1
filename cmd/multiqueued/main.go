// Command multiqueued runs the ordered multi-queue ingest service: it
// reads a newline-delimited JSON session of stream registrations and
// timestamped items, merges every stream into one globally
// time-ordered dispatch sequence, and fans the result out to an
// optional diagnostics websocket and a downstream consumer pipeline.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "multiqueued",
		Short: "Ordered multi-queue sensor ingest service",
		Long: "multiqueued merges independently-arriving, timestamped sensor " +
			"streams into one globally time-ordered dispatch sequence.",
	}

	root.AddCommand(newServeCommand())
	root.AddCommand(newReplayCommand())
	return root
}
