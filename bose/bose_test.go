package bose_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mycelia-vm/mycelia/bose"
	"github.com/mycelia-vm/mycelia/cell"
)

func newStore(t *testing.T) *bose.Store {
	t.Helper()
	return bose.NewStore(cell.New(1 << 16))
}

func mustArray(t *testing.T, s *bose.Store, elems ...bose.Value) bose.Value {
	t.Helper()
	v, err := s.Array(elems...)
	require.NoError(t, err)
	return v
}

func mustObject(t *testing.T, s *bose.Store, pairs ...bose.Pair) bose.Value {
	t.Helper()
	v, err := s.Object(pairs...)
	require.NoError(t, err)
	return v
}

func mustInt64(t *testing.T, s *bose.Store, n int64) bose.Value {
	t.Helper()
	v, err := s.Int64(n)
	require.NoError(t, err)
	return v
}

// TestIntegerRoundTripsToMinimalSmolForm checks that an integer within
// the smol range encodes to its minimal single-byte form and decodes
// back exactly.
func TestIntegerRoundTripsToMinimalSmolForm(t *testing.T) {
	s := newStore(t)
	v := mustInt64(t, s, 42)
	enc := bose.Encode(v)
	require.Len(t, enc, 1, "42 is within the smol range and must encode to a single byte")

	dec, n, err := bose.Decode(s.Pool(), enc)
	require.NoError(t, err)
	require.Equal(t, len(enc), n)
	require.True(t, v.Equal(dec))
}

// TestNestedObjectPrintsAsJSON checks that a nested object/array tree
// renders as the expected JSON string.
func TestNestedObjectPrintsAsJSON(t *testing.T) {
	s := newStore(t)
	rect := func(ox, oy, ex, ey int64) bose.Value {
		return mustObject(t, s,
			bose.Pair{Key: "origin", Value: mustArray(t, s, mustInt64(t, s, ox), mustInt64(t, s, oy))},
			bose.Pair{Key: "extent", Value: mustArray(t, s, mustInt64(t, s, ex), mustInt64(t, s, ey))},
		)
	}
	v := mustObject(t, s,
		bose.Pair{Key: "space", Value: rect(-40, -20, 600, 460)},
		bose.Pair{Key: "shapes", Value: mustArray(t, s,
			rect(5, 3, 21, 13),
			rect(8, 5, 13, 8),
		)},
	)

	want := `{"space":{"origin":[-40,-20],"extent":[600,460]},"shapes":[{"origin":[5,3],"extent":[21,13]},{"origin":[8,5],"extent":[13,8]}]}`
	require.Equal(t, want, bose.JSON(v))
}

// TestArrayInsertImmutability checks that Insert returns a new array
// without mutating the receiver.
func TestArrayInsertImmutability(t *testing.T) {
	s := newStore(t)
	a := mustArray(t, s, bose.True, bose.False)
	b, err := a.Insert(1, bose.Null)
	require.NoError(t, err)

	require.Equal(t, `[true,null,false]`, bose.JSON(b))
	require.Equal(t, `[true,false]`, bose.JSON(a), "a must be unchanged by Insert")
}

func TestProperty4ArrayInsert(t *testing.T) {
	s := newStore(t)
	a := mustArray(t, s, mustInt64(t, s, 10), mustInt64(t, s, 20), mustInt64(t, s, 30))
	b, err := a.Insert(1, mustInt64(t, s, 99))
	require.NoError(t, err)

	require.Equal(t, a.Len()+1, b.Len())
	bElems, aElems := b.Elems(), a.Elems()
	require.True(t, bElems[1].Equal(mustInt64(t, s, 99)))
	require.True(t, bElems[0].Equal(aElems[0]))
	require.True(t, bElems[2].Equal(aElems[1]))
	require.True(t, bElems[3].Equal(aElems[2]))
	require.Equal(t, 3, a.Len(), "a itself must be unchanged")
}

func TestObjectSetLastWinsPositionRetained(t *testing.T) {
	s := newStore(t)
	o := mustObject(t, s,
		bose.Pair{Key: "a", Value: mustInt64(t, s, 1)},
		bose.Pair{Key: "b", Value: mustInt64(t, s, 2)},
	)
	o2, err := o.Set("a", mustInt64(t, s, 99))
	require.NoError(t, err)

	require.Equal(t, 2, o2.Len())
	require.Equal(t, "a", o2.Pairs()[0].Key, "original key position retained")
	v, ok := o2.Get("a")
	require.True(t, ok)
	require.True(t, v.Equal(mustInt64(t, s, 99)))
}

func TestProperty2DecodeEncodeRoundTrip(t *testing.T) {
	s := newStore(t)
	cases := []bose.Value{
		bose.Null,
		bose.True,
		bose.False,
		mustInt64(t, s, 0),
		mustInt64(t, s, -64),
		mustInt64(t, s, 126),
		mustInt64(t, s, 127),
		mustInt64(t, s, -65),
		mustInt64(t, s, 123456789),
		mustInt64(t, s, -123456789),
		func() bose.Value {
			v, err := s.OctetString([]byte{0, 1, 2, 255})
			require.NoError(t, err)
			return v
		}(),
		func() bose.Value {
			v, err := s.UTF8String("hello, 世界")
			require.NoError(t, err)
			return v
		}(),
		func() bose.Value {
			v, err := s.UTF16String("hello, 世界")
			require.NoError(t, err)
			return v
		}(),
		mustArray(t, s),
		mustArray(t, s, mustInt64(t, s, 1), func() bose.Value {
			v, err := s.UTF8String("x")
			require.NoError(t, err)
			return v
		}(), mustArray(t, s, bose.True)),
		mustObject(t, s),
		mustObject(t, s, bose.Pair{Key: "k", Value: mustInt64(t, s, 7)}),
	}
	for _, v := range cases {
		enc := bose.Encode(v)
		dec, n, err := bose.Decode(s.Pool(), enc)
		require.NoError(t, err)
		require.Equal(t, len(enc), n)
		require.True(t, v.Equal(dec), "round trip mismatch for %v", bose.JSON(v))
	}
}

func TestProperty3StringIterationYieldsScalarsThenEOF(t *testing.T) {
	s := newStore(t)
	str := "ab世"
	v, err := s.UTF8String(str)
	require.NoError(t, err)
	it := bose.NewIterator(v)

	var got []rune
	for {
		r := it.Next()
		if r == bose.EOF {
			break
		}
		got = append(got, r)
	}
	require.Equal(t, []rune(str), got)
	require.Equal(t, bose.EOF, it.Next(), "EOF must be sticky")
}

func TestBuilderRoundTrip(t *testing.T) {
	s := newStore(t)
	b, err := bose.NewBuilder(s.Pool(), bose.KindUTF8)
	require.NoError(t, err)
	for _, r := range "hi!" {
		require.NoError(t, b.WriteRune(r))
	}
	want, err := s.UTF8String("hi!")
	require.NoError(t, err)
	require.True(t, b.Built().Equal(want))
}

func TestBuilderGrowsPastInlineCapacity(t *testing.T) {
	s := newStore(t)
	b, err := bose.NewBuilder(s.Pool(), bose.KindOctets)
	require.NoError(t, err)

	// Longer than a head cell's inline capacity, forcing at least one
	// extension cell to be reserved mid-build.
	content := make([]byte, 100)
	for i := range content {
		content[i] = byte(i)
		require.NoError(t, b.WriteByte(content[i]))
	}

	built := b.Built()
	require.Equal(t, content, built.Bytes())

	freeBefore := s.Pool().FreeCount()
	built.Release()
	require.Greater(t, s.Pool().FreeCount(), freeBefore+1, "releasing a multi-cell chain must free more than one cell")
}

func TestDecodeOutOfBounds(t *testing.T) {
	s := newStore(t)
	_, _, err := bose.Decode(s.Pool(), []byte{0xC5, 0x05, 'h', 'i'}) // utf8 string claims 5 bytes, only 2 present
	require.ErrorIs(t, err, bose.ErrOutOfBounds)
}

func TestValueAllocationCountsAgainstPoolCapacity(t *testing.T) {
	pool := cell.New(2)
	s := bose.NewStore(pool)

	require.Equal(t, 0, pool.HighWater())
	_, err := s.UTF8String("x")
	require.NoError(t, err)
	require.Equal(t, 1, pool.HighWater(), "a BOSE value must reserve a real pool cell")

	// Exhaust the remaining capacity, then confirm a further allocation
	// reports OutOfMemory rather than silently succeeding off-pool.
	_, err = s.UTF8String("y")
	require.NoError(t, err)
	_, err = s.UTF8String("z")
	require.ErrorIs(t, err, cell.ErrOutOfMemory)
}
