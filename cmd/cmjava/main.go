// Command cmjava is a from-scratch JVM .class-file interpreter. Usage:
//
//	cmjava [flags] <class-file>...
//
// Every class file given is loaded and linked into the heap; the last one
// is the entry class whose main(String[]) is run.
package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/cmjava/cmjava/internal/tracelog"
	"github.com/cmjava/cmjava/pkg/class"
	"github.com/cmjava/cmjava/pkg/cmerr"
	"github.com/cmjava/cmjava/pkg/exec"
	"github.com/cmjava/cmjava/pkg/heap"
)

const version = "0.1.0"

func main() {
	if os.Getenv("CMJAVA_TRACE") != "" {
		tracelog.SetVerbose(true)
	}

	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool
	var showVersion bool

	cmd := &cobra.Command{
		Use:   "cmjava [flags] <class-file>...",
		Short: "Run a Java class file",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				tracelog.SetVerbose(true)
			}
			if showVersion {
				printVersion()
				return nil
			}
			if len(args) == 0 {
				return cmd.Usage()
			}
			return run(args)
		},
		SilenceUsage: true,
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log frame entry/exit and instruction dispatch")
	cmd.Flags().BoolVar(&showVersion, "version", false, "print version information and exit")

	return cmd
}

func printVersion() {
	fmt.Printf("cmjava %s\n", version)
	revision, timestamp := "unknown", "unknown"
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				revision = s.Value
			case "vcs.time":
				timestamp = s.Value
			}
		}
	}
	fmt.Printf("  revision:  %s\n", revision)
	fmt.Printf("  built:     %s\n", timestamp)
	fmt.Printf("  toolchain: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// run loads every class file in order and links it into the heap, then
// runs the last one's main(String[]) (spec section 6).
func run(classFiles []string) error {
	h := heap.New(os.Stdout, os.Stdin)

	var entry class.Class
	for _, path := range classFiles {
		c, err := loadClassFile(h, path)
		if err != nil {
			return fmt.Errorf("loading %s: %w", path, err)
		}
		entry = c
	}

	e := exec.New(h)
	if err := e.Run(entry, nil); err != nil {
		// Run has already reported an uncaught exception on stderr; link
		// errors and invariant violations are reported here.
		var iv *cmerr.InvariantViolation
		var le *cmerr.LinkError
		if errors.As(err, &iv) || errors.As(err, &le) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
	return nil
}

func loadClassFile(h *heap.Heap, path string) (class.Class, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return heap.LoadClassFile(h, f)
}
