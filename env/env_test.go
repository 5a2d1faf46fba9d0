package env_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mycelia-vm/mycelia/cell"
	"github.com/mycelia-vm/mycelia/dispatcher"
	"github.com/mycelia-vm/mycelia/env"
	"github.com/mycelia-vm/mycelia/proto"
	"github.com/mycelia-vm/mycelia/queue"
)

// newCustomer registers a behaviour that records every message it
// receives, for asserting on LOOKUP/BIND replies in tests.
func newCustomer(d *dispatcher.Dispatcher) (cell.Ref, *[]uint32) {
	var got []uint32
	id := d.Registry().Register(func(ctx *dispatcher.Context, self cell.Ref) error {
		got = append(got, ctx.Word(1))
		ctx.Complete()
		return nil
	})
	ref, err := d.NewActor(id)
	if err != nil {
		panic(err)
	}
	return ref, &got
}

func newTestChain(t *testing.T) (*dispatcher.Dispatcher, *env.Chain) {
	t.Helper()
	d := dispatcher.New(cell.New(4096), queue.New(queue.MinCapacity))
	c, err := env.New(d)
	require.NoError(t, err)
	return d, c
}

func TestBindThenLookupSameFrame(t *testing.T) {
	d, c := newTestChain(t)
	root, err := c.NewScope(c.Fail)
	require.NoError(t, err)

	sym := cell.Ref(9001)  // a stand-in symbol identity
	val := cell.Ref(424242) // a stand-in value identity

	bindCust, bindGot := newCustomer(d)
	_, err = d.Enqueue(root, uint32(proto.Bind), uint32(bindCust), uint32(sym), uint32(val))
	require.NoError(t, err)
	d.Run()
	require.Len(t, *bindGot, 1)

	lookupCust, lookupGot := newCustomer(d)
	_, err = d.Enqueue(root, uint32(proto.Lookup), uint32(lookupCust), uint32(sym))
	require.NoError(t, err)
	d.Run()

	require.Len(t, *lookupGot, 1)
	require.EqualValues(t, val, (*lookupGot)[0])
}

func TestUnboundSymbolFailsTurn(t *testing.T) {
	d, c := newTestChain(t)
	root, err := c.NewScope(c.Fail)
	require.NoError(t, err)

	var gotErr error
	d = dispatcher.New(d.Pool(), d.Queue(),
		dispatcher.WithRegistry(d.Registry()),
		dispatcher.WithOverloadHandler(func(err error) { gotErr = err }),
	)

	cust, _ := newCustomer(d)
	_, err = d.Enqueue(root, uint32(proto.Lookup), uint32(cust), uint32(cell.Ref(777)))
	require.NoError(t, err)
	d.Run()

	require.Error(t, gotErr)
}

func TestChildScopeShadowsWithoutMutatingParent(t *testing.T) {
	d, c := newTestChain(t)
	parent, err := c.NewScope(c.Fail)
	require.NoError(t, err)

	sym := cell.Ref(9001)
	parentVal := cell.Ref(111)
	childVal := cell.Ref(222)

	bindCust, _ := newCustomer(d)
	_, err = d.Enqueue(parent, uint32(proto.Bind), uint32(bindCust), uint32(sym), uint32(parentVal))
	require.NoError(t, err)
	d.Run()

	child, err := c.NewScope(parent)
	require.NoError(t, err)
	bindCust2, _ := newCustomer(d)
	_, err = d.Enqueue(child, uint32(proto.Bind), uint32(bindCust2), uint32(sym), uint32(childVal))
	require.NoError(t, err)
	d.Run()

	lookupChildCust, lookupChildGot := newCustomer(d)
	_, err = d.Enqueue(child, uint32(proto.Lookup), uint32(lookupChildCust), uint32(sym))
	require.NoError(t, err)
	d.Run()
	require.EqualValues(t, childVal, (*lookupChildGot)[0])

	lookupParentCust, lookupParentGot := newCustomer(d)
	_, err = d.Enqueue(parent, uint32(proto.Lookup), uint32(lookupParentCust), uint32(sym))
	require.NoError(t, err)
	d.Run()
	require.EqualValues(t, parentVal, (*lookupParentGot)[0], "binding in the child scope must not mutate the parent")
}
