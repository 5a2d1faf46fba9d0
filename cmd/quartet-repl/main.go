// Command quartet-repl drives quartet.Machine over stdin, the analogous
// binary to cmd/kernel-repl for the Quartet surface. Quartet's own
// lexer and REPL front-end are out of scope for the machine itself, so
// this is explicitly a thin stand-in: it recognizes whitespace-separated
// tokens only, with no WORDS/EMIT/. debug words.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/mycelia-vm/mycelia/bose"
	"github.com/mycelia-vm/mycelia/quartet"
)

func main() {
	os.Exit(run(os.Stdin, os.Stdout))
}

func run(in *os.File, out *os.File) int {
	m := quartet.New()
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		tokens := strings.Fields(scanner.Text())
		if len(tokens) == 0 {
			continue
		}
		if err := m.Eval(tokens); err != nil {
			fmt.Fprintln(out, "#<ERROR>", err)
			continue
		}
		printTop(out, m)
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintln(out, err)
		return 1
	}
	return 0
}

func printTop(out *os.File, m *quartet.Machine) {
	stack := m.Stack()
	if len(stack) == 0 {
		return
	}
	fmt.Fprintln(out, bose.JSON(stack[len(stack)-1]))
}
