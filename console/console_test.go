package console_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mycelia-vm/mycelia/console"
)

func TestPutcBuffersUntilMaxSize(t *testing.T) {
	var out bytes.Buffer
	c := console.New(strings.NewReader(""), &out, 4)
	defer c.Close()

	ctx := context.Background()
	for _, b := range []byte("abc") {
		require.NoError(t, c.Putc(ctx, b))
	}
	require.Empty(t, out.String(), "fewer than maxSize bytes must not have flushed yet")

	require.NoError(t, c.Putc(ctx, 'd'))
	require.Equal(t, "abcd", out.String(), "the chunk flushes synchronously once maxSize is reached")
}

func TestFlushForcesPartialChunk(t *testing.T) {
	var out bytes.Buffer
	c := console.New(strings.NewReader(""), &out, 64)
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Putc(ctx, 'x'))
	require.NoError(t, c.Putc(ctx, 'y'))
	require.Empty(t, out.String())

	require.NoError(t, c.Flush(ctx))
	require.Equal(t, "xy", out.String())
}

func TestGetcReadsUnbatchedInput(t *testing.T) {
	var out bytes.Buffer
	c := console.New(strings.NewReader("hi"), &out, 64)
	defer c.Close()

	b, err := c.Getc()
	require.NoError(t, err)
	require.Equal(t, byte('h'), b)

	b, err = c.Getc()
	require.NoError(t, err)
	require.Equal(t, byte('i'), b)
}
