// Command priosim simulates priority CPU scheduling of a batch of processes
// on a single CPU, printing a per-tick trace and waiting/turnaround
// statistics.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
)

const version = "1.0.0"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, os.Getenv))
}

// run executes one invocation and returns the process exit code.
func run(args []string, stdout, stderr io.Writer, getenv func(string) string) int {
	a := newApp(stdout, stderr, getenv)
	defer a.Close()

	root := newRootCmd(a)
	root.SetArgs(normalizeArgs(args))
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(stderr, "priosim: %v\n", err)
		var ue *usageError
		if errors.As(err, &ue) {
			fmt.Fprint(stderr, ue.cmd.UsageString())
		} else {
			fmt.Fprintln(stderr, "Run 'priosim --help' for usage.")
		}
		return 1
	}
	return 0
}

// normalizeArgs rewrites "--aging A B" into "--aging=A,B" so the two
// positional values reach the flag parser as one slice value. Anything
// after "--" is left alone.
func normalizeArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			return append(out, args[i:]...)
		}
		if arg == "--aging" && i+2 < len(args) && isInt(args[i+1]) && isInt(args[i+2]) {
			out = append(out, "--aging="+args[i+1]+","+args[i+2])
			i += 2
			continue
		}
		out = append(out, arg)
	}
	return out
}

func isInt(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}
