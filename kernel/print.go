package kernel

import (
	"strconv"
	"strings"

	"github.com/mycelia-vm/mycelia/cell"
)

// Eval runs expr to completion against env and returns its result, for
// driving a single top-level Kernel REPL form: read, evaluate in the
// ground environment, print.
func (k *Kernel) Eval(expr, env cell.Ref) (cell.Ref, error) {
	return k.evalToCompletion(expr, env)
}

// Write renders a Kernel value back to its source syntax, plain text
// with no colour (the ANSI pretty-printer is out of scope): enough for
// a REPL to echo a result a user typed something structurally similar
// to.
func (k *Kernel) Write(ref cell.Ref) string {
	var b strings.Builder
	k.write(&b, ref)
	return b.String()
}

func (k *Kernel) write(b *strings.Builder, ref cell.Ref) {
	switch {
	case ref == k.Inert:
		b.WriteString("#inert")
	case ref == k.Ignore:
		b.WriteString("#ignore")
	case ref == k.Nil:
		b.WriteString("()")
	case ref == k.True:
		b.WriteString("#t")
	case ref == k.False:
		b.WriteString("#f")
	case k.IsNumber(ref):
		b.WriteString(k.NumberValue(ref).String())
	case k.IsString(ref):
		b.WriteString(strconv.Quote(k.StringValue(ref)))
	case k.IsSymbol(ref):
		b.WriteString(k.SymbolName(ref))
	case k.IsPair(ref):
		b.WriteByte('(')
		k.writeList(b, ref)
		b.WriteByte(')')
	default:
		b.WriteString("#<combiner>")
	}
}

func (k *Kernel) writeList(b *strings.Builder, ref cell.Ref) {
	first := true
	for {
		if !first {
			b.WriteByte(' ')
		}
		first = false
		k.write(b, k.Car(ref))
		ref = k.Cdr(ref)
		if ref == k.Nil {
			return
		}
		if !k.IsPair(ref) {
			b.WriteString(" . ")
			k.write(b, ref)
			return
		}
	}
}
