// Package repl runs an interactive read-eval-print loop against an agent.
package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ltejedor/building-ai-agents/internal/agent"
)

// Prompt is printed before every task.
const Prompt = "\nEnter task (or 'exit' to quit): "

// Options tune the loop's output.
type Options struct {
	// Label prefixes the response header, e.g. "Agent" prints
	// "Agent response:". Defaults to "Agent".
	Label string

	// ResetCommand clears the agent's history when entered. Defaults to
	// "/new".
	ResetCommand string
}

// Run reads tasks from in until "exit", "quit", EOF, or ctx is cancelled.
// Each task goes to a; its answer or error is written to out and the loop
// continues. Run returns ctx.Err() on cancellation and a read error if in
// fails, otherwise nil.
func Run(ctx context.Context, a agent.Agent, in io.Reader, out io.Writer, opts Options) error {
	if opts.Label == "" {
		opts.Label = "Agent"
	}
	if opts.ResetCommand == "" {
		opts.ResetCommand = "/new"
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fmt.Fprint(out, Prompt)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		task := strings.TrimSpace(scanner.Text())
		switch {
		case task == "":
			continue
		case strings.EqualFold(task, "exit"), strings.EqualFold(task, "quit"):
			return nil
		case task == opts.ResetCommand:
			a.Reset()
			fmt.Fprintln(out, "Conversation cleared.")
			continue
		}

		result, err := a.Run(ctx, task)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		fmt.Fprintf(out, "\n%s response:\n%s\n", opts.Label, result)
	}
}
