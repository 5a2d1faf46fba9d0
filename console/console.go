// Package console implements a byte console (putc/getc/flush) as an
// external collaborator outside the dispatcher's own turn loop. It is
// built on github.com/joeycumines/go-microbatch: Putc appends to a
// small buffer and, once full (or Flush is called explicitly), submits
// the accumulated chunk as one job to a microbatch.Batcher, grouping
// small writes into fewer round trips.
package console

import (
	"bufio"
	"context"
	"io"
	"sync"
	"time"

	"github.com/joeycumines/go-microbatch"
)

// Console is a buffered byte console over an io.Writer/io.Reader pair,
// e.g. os.Stdout/os.Stdin in the cmd/ binaries.
type Console struct {
	mu      sync.Mutex
	buf     []byte
	maxSize int

	batcher *microbatch.Batcher[[]byte]
	in      *bufio.Reader
}

// New builds a Console writing batched chunks to w and reading
// unbatched bytes from r. maxSize bounds how many bytes Putc buffers
// before forcing a flush; 0 selects a reasonable default.
func New(r io.Reader, w io.Writer, maxSize int) *Console {
	if maxSize <= 0 {
		maxSize = 256
	}
	c := &Console{
		maxSize: maxSize,
		in:      bufio.NewReader(r),
	}
	c.batcher = microbatch.NewBatcher[[]byte](
		&microbatch.BatcherConfig{MaxSize: 8, FlushInterval: 20 * time.Millisecond},
		func(ctx context.Context, jobs [][]byte) error {
			for _, job := range jobs {
				if _, err := w.Write(job); err != nil {
					return err
				}
			}
			return nil
		},
	)
	return c
}

// Putc appends one byte to the pending chunk, submitting it to the
// batcher once maxSize is reached.
func (c *Console) Putc(ctx context.Context, b byte) error {
	c.mu.Lock()
	c.buf = append(c.buf, b)
	var chunk []byte
	if len(c.buf) >= c.maxSize {
		chunk, c.buf = c.buf, nil
	}
	c.mu.Unlock()
	if chunk == nil {
		return nil
	}
	return c.submit(ctx, chunk)
}

// Flush forces any pending bytes out through the batcher immediately,
// rather than waiting for maxSize or the batcher's own flush interval.
func (c *Console) Flush(ctx context.Context) error {
	c.mu.Lock()
	chunk := c.buf
	c.buf = nil
	c.mu.Unlock()
	if len(chunk) == 0 {
		return nil
	}
	return c.submit(ctx, chunk)
}

func (c *Console) submit(ctx context.Context, chunk []byte) error {
	result, err := c.batcher.Submit(ctx, chunk)
	if err != nil {
		return err
	}
	return result.Wait(ctx)
}

// Getc reads a single input byte, unbatched: input is synchronous
// request/reply, with no batching benefit.
func (c *Console) Getc() (byte, error) {
	return c.in.ReadByte()
}

// Close flushes and releases the underlying batcher.
func (c *Console) Close() error {
	_ = c.Flush(context.Background())
	return c.batcher.Close()
}
