package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/openai/openai-go"
)

// turnRunner is the slice of the agent loop the REPL needs.
type turnRunner interface {
	Run(userInput string) (openai.ChatCompletionMessage, error)
}

// runREPL reads one line per turn until an exit keyword or EOF. Turn
// errors are reported inline and the loop keeps accepting input.
func runREPL(app turnRunner, in io.Reader, out io.Writer) error {
	if app == nil {
		return fmt.Errorf("agent loop is required")
	}
	if in == nil {
		return fmt.Errorf("input reader is required")
	}
	if out == nil {
		out = io.Discard
	}

	printWelcome(out)
	scanner := bufio.NewScanner(in)

	for {
		_, _ = fmt.Fprint(out, "You: ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if isExitCommand(input) {
			_, _ = fmt.Fprintln(out, "Goodbye!")
			break
		}

		finalMessage, err := app.Run(input)
		if err != nil {
			_, _ = fmt.Fprintf(out, "Agent: Error: %v\n\nPlease try rephrasing your request or provide more specific details.\n\n", err)
			continue
		}

		_, _ = fmt.Fprintf(out, "Agent: %s\n\n", finalMessage.Content)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}

// isExitCommand matches the exit keywords; an empty line also quits.
func isExitCommand(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "", "quit", "exit", "q":
		return true
	}
	return false
}

func printWelcome(out io.Writer) {
	_, _ = fmt.Fprintln(out, "Create Google Calendar events.")
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, "Some prompt examples that you can use below:")
	_, _ = fmt.Fprintln(out, "  - Create an event titled 'Gym' for 2025-11-05 at 6 PM")
	_, _ = fmt.Fprintln(out, "  - Create an event with description 'Discuss project updates' on 2025-11-05 from 3 PM to 4 PM")
	_, _ = fmt.Fprintln(out, "  - Create an event at location 'Office' on 2025-11-06 from 10 AM to 11 AM")
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, "Commands: 'quit' or 'exit' to end")
	_, _ = fmt.Fprintln(out, strings.Repeat("=", 60))
}
