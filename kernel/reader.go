package kernel

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/mycelia-vm/mycelia/cell"
)

// Reader parses Kernel source text into actor-backed data, the bridge
// between the REPL's raw input and the evaluator's (cust, EVAL, env)
// protocol. It understands a deliberately small surface: symbols,
// decimal integers, proper and dotted lists, double-quoted strings,
// and the #t/#f/#inert/#ignore literals, no reader macros, no floats,
// no vectors.
type Reader struct {
	k   *Kernel
	src []rune
	pos int
}

// NewReader returns a Reader over src, bound to k for constructing
// symbols, numbers, strings, and pairs as it parses.
func NewReader(k *Kernel, src string) *Reader {
	return &Reader{k: k, src: []rune(src)}
}

// ReadAll parses every top-level expression remaining in src.
func (r *Reader) ReadAll() ([]cell.Ref, error) {
	var out []cell.Ref
	for !r.AtEOF() {
		ref, err := r.Read()
		if err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, nil
}

func (r *Reader) peek() (rune, bool) {
	if r.pos >= len(r.src) {
		return 0, false
	}
	return r.src[r.pos], true
}

func (r *Reader) next() (rune, bool) {
	c, ok := r.peek()
	if ok {
		r.pos++
	}
	return c, ok
}

func (r *Reader) skipSpace() {
	for {
		c, ok := r.peek()
		if !ok {
			return
		}
		if c == ';' {
			for {
				c, ok := r.next()
				if !ok || c == '\n' {
					break
				}
			}
			continue
		}
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			r.pos++
			continue
		}
		return
	}
}

// AtEOF reports whether only whitespace/comments remain.
func (r *Reader) AtEOF() bool {
	r.skipSpace()
	return r.pos >= len(r.src)
}

// Remainder returns the source text not yet consumed, for a REPL that
// reads one form at a time out of a growing line buffer and needs to
// carry the rest forward to the next Read.
func (r *Reader) Remainder() string {
	return string(r.src[r.pos:])
}

// Read parses exactly one top-level expression.
func (r *Reader) Read() (cell.Ref, error) {
	r.skipSpace()
	c, ok := r.peek()
	if !ok {
		return cell.Nil, fmt.Errorf("kernel: unexpected end of input")
	}
	switch {
	case c == '(':
		r.pos++
		return r.readList()
	case c == ')':
		return cell.Nil, fmt.Errorf("kernel: unexpected ')'")
	case c == '"':
		return r.readString()
	default:
		return r.readAtom()
	}
}

func (r *Reader) readList() (cell.Ref, error) {
	r.skipSpace()
	if c, ok := r.peek(); ok && c == ')' {
		r.pos++
		return r.k.Nil, nil
	}
	head, err := r.Read()
	if err != nil {
		return cell.Nil, err
	}
	r.skipSpace()
	if c, ok := r.peek(); ok && c == '.' {
		// dotted tail: "(" elem "." elem ")"
		save := r.pos
		r.pos++
		if c2, ok := r.peek(); !ok || c2 == ' ' || c2 == '\t' || c2 == '\n' {
			tail, err := r.Read()
			if err != nil {
				return cell.Nil, err
			}
			r.skipSpace()
			if c3, ok := r.next(); !ok || c3 != ')' {
				return cell.Nil, fmt.Errorf("kernel: expected ')' after dotted tail")
			}
			return r.k.Cons(head, tail)
		}
		r.pos = save
	}
	rest, err := r.readList()
	if err != nil {
		return cell.Nil, err
	}
	return r.k.Cons(head, rest)
}

func (r *Reader) readString() (cell.Ref, error) {
	r.pos++ // opening quote
	var sb strings.Builder
	for {
		c, ok := r.next()
		if !ok {
			return cell.Nil, fmt.Errorf("kernel: unterminated string literal")
		}
		if c == '"' {
			break
		}
		if c == '\\' {
			esc, ok := r.next()
			if !ok {
				return cell.Nil, fmt.Errorf("kernel: unterminated escape")
			}
			switch esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			default:
				sb.WriteRune(esc)
			}
			continue
		}
		sb.WriteRune(c)
	}
	return r.k.String(sb.String())
}

func isDelimiter(c rune) bool {
	switch c {
	case '(', ')', '"', ' ', '\t', '\n', '\r', ';':
		return true
	}
	return false
}

func (r *Reader) readAtom() (cell.Ref, error) {
	start := r.pos
	for {
		c, ok := r.peek()
		if !ok || isDelimiter(c) {
			break
		}
		r.pos++
	}
	tok := string(r.src[start:r.pos])
	if tok == "" {
		return cell.Nil, fmt.Errorf("kernel: empty token")
	}
	switch tok {
	case "#t":
		return r.k.True, nil
	case "#f":
		return r.k.False, nil
	case "#inert":
		return r.k.Inert, nil
	case "#ignore":
		return r.k.Ignore, nil
	}
	if n, ok := new(big.Int).SetString(tok, 10); ok {
		return r.k.Number(n)
	}
	return r.k.Symbol(tok)
}
