// Command kernel-repl wires cell.Pool + queue.Queue + dispatcher.Dispatcher
// + env.Chain + kernel.Kernel behind a minimal Kernel REPL surface:
// `( … )` is read, evaluated in the ground environment, and printed;
// `(exit)` terminates; a recoverable error prints `#<ERROR>` and resumes
// at the prompt. The Kernel reader it drives is package kernel's, not a
// separate lexer.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/joeycumines/logiface"

	"github.com/mycelia-vm/mycelia/cell"
	"github.com/mycelia-vm/mycelia/dispatcher"
	"github.com/mycelia-vm/mycelia/kernel"
	"github.com/mycelia-vm/mycelia/mlog"
	"github.com/mycelia-vm/mycelia/queue"
)

func main() {
	if err := run(os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(in io.Reader, out io.Writer) error {
	pool := cell.New(1 << 20)
	q := queue.New(queue.MinCapacity)
	log := mlog.New(os.Stderr, logiface.LevelWarning)
	d := dispatcher.New(pool, q, dispatcher.WithLogger(log))

	k, err := kernel.New(d)
	if err != nil {
		return fmt.Errorf("kernel-repl: bootstrap: %w", err)
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	var src []byte
	for scanner.Scan() {
		src = append(src, scanner.Bytes()...)
		src = append(src, '\n')

		for {
			r := kernel.NewReader(k, string(src))
			if r.AtEOF() {
				src = src[:0]
				break
			}
			form, err := r.Read()
			if err != nil {
				// Incomplete form (e.g. an unterminated list): wait for
				// another line of input before retrying.
				break
			}
			src = []byte(r.Remainder())

			if isExit(k, form) {
				return nil
			}

			result, err := k.Eval(form, k.Ground)
			if err != nil {
				fmt.Fprintln(out, "#<ERROR>")
				continue
			}
			fmt.Fprintln(out, k.Write(result))
		}
	}
	return scanner.Err()
}

// isExit reports whether form is the literal `(exit)` invocation.
func isExit(k *kernel.Kernel, form cell.Ref) bool {
	if !k.IsPair(form) {
		return false
	}
	head := k.Car(form)
	if !k.IsSymbol(head) || k.SymbolName(head) != "exit" {
		return false
	}
	return k.Cdr(form) == k.Nil
}
