package intrusive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavanmanishd/slabpool"
)

func requirePanicIs(t *testing.T, target error, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected panic wrapping %v", target)
		err, ok := r.(error)
		require.True(t, ok, "panic value %v is not an error", r)
		require.ErrorIs(t, err, target)
	}()
	fn()
}

func values[T any](l *List[T]) []T {
	var out []T
	for v := range l.All() {
		out = append(out, *v)
	}
	return out
}

func backward[T any](l *List[T]) []T {
	var out []T
	for v := range l.Backward() {
		out = append(out, *v)
	}
	return out
}

// assertRing walks the ring both ways and checks it agrees with Len.
func assertRing[T any](t *testing.T, l *List[T]) {
	t.Helper()
	n := 0
	for node := l.Begin(); node != l.End(); node = node.Next() {
		require.Same(t, node, node.Next().Prev(), "broken back link after node %d", n)
		n++
		require.LessOrEqual(t, n, l.Len(), "ring is longer than Len")
	}
	require.Equal(t, l.Len(), n)
	require.Equal(t, l.Len() == 0, l.Empty())
}

func TestListLinkAndUnlink(t *testing.T) {
	l := New[int]()
	nodes := make([]Node[int], 4)
	for i := range nodes {
		nodes[i].Item = i
	}

	l.LinkBack(&nodes[0])
	l.LinkBack(&nodes[1])
	l.LinkBack(&nodes[2])
	l.LinkFront(&nodes[3])
	assert.Equal(t, []int{3, 0, 1, 2}, values(l))
	assert.Equal(t, 4, l.Len())
	assertRing(t, l)

	assert.Same(t, &nodes[3], l.UnlinkFront())
	assert.Same(t, &nodes[2], l.UnlinkBack())
	assert.Equal(t, []int{0, 1}, values(l))
	assert.False(t, nodes[3].Linked())
	assert.False(t, nodes[2].Linked())
	assertRing(t, l)
}

func TestListFrontBack(t *testing.T) {
	l := New[string]()
	a, b := &Node[string]{Item: "a"}, &Node[string]{Item: "b"}
	l.LinkBack(a)
	assert.Same(t, l.FrontNode(), l.BackNode())

	l.LinkBack(b)
	assert.Equal(t, "a", *l.Front())
	assert.Equal(t, "b", *l.Back())

	*l.Back() = "B"
	assert.Equal(t, "B", b.Item)
}

func TestListEmptyAccessPanics(t *testing.T) {
	l := New[int]()
	requirePanicIs(t, ErrEmptyList, func() { l.Front() })
	requirePanicIs(t, ErrEmptyList, func() { l.Back() })
	requirePanicIs(t, ErrEmptyList, func() { l.UnlinkFront() })
	requirePanicIs(t, ErrEmptyList, func() { l.UnlinkBack() })
}

func TestListLinkTwicePanics(t *testing.T) {
	l, other := New[int](), New[int]()
	n := &Node[int]{Item: 1}
	l.LinkBack(n)
	requirePanicIs(t, ErrNodeLinked, func() { l.LinkFront(n) })
	requirePanicIs(t, ErrNodeLinked, func() { other.LinkBack(n) })
	assert.Equal(t, 1, l.Len())
	assert.Equal(t, 0, other.Len())
}

func TestListLinkAfter(t *testing.T) {
	l := New[int]()
	a, b, c := &Node[int]{Item: 1}, &Node[int]{Item: 2}, &Node[int]{Item: 3}
	l.LinkBack(a)
	l.LinkBack(c)
	l.LinkAfter(a, b)
	assert.Equal(t, []int{1, 2, 3}, values(l))

	d := &Node[int]{Item: 4}
	l.LinkAfter(c, d)
	assert.Same(t, d, l.BackNode())
	assertRing(t, l)

	requirePanicIs(t, ErrNodeUnlinked, func() { l.LinkAfter(&Node[int]{}, &Node[int]{}) })
}

func TestListUnlinkNode(t *testing.T) {
	l := New[int]()
	nodes := make([]Node[int], 5)
	for i := range nodes {
		nodes[i].Item = i
		l.LinkBack(&nodes[i])
	}
	l.UnlinkNode(&nodes[2])
	l.UnlinkNode(&nodes[0])
	l.UnlinkNode(&nodes[4])
	assert.Equal(t, []int{1, 3}, values(l))
	assertRing(t, l)

	requirePanicIs(t, ErrNodeUnlinked, func() { l.UnlinkNode(&nodes[2]) })
	assert.Equal(t, 2, l.Len())
}

func TestListIteration(t *testing.T) {
	l := New[int]()
	nodes := make([]Node[int], 4)
	for i := range nodes {
		nodes[i].Item = i * 10
		l.LinkBack(&nodes[i])
	}

	var forward []int
	for n := l.Begin(); n != l.End(); n = n.Next() {
		forward = append(forward, n.Item)
	}
	assert.Equal(t, []int{0, 10, 20, 30}, forward)

	var reverse []int
	for n := l.End().Prev(); n != l.End(); n = n.Prev() {
		reverse = append(reverse, n.Item)
	}
	assert.Equal(t, []int{30, 20, 10, 0}, reverse)
	assert.Equal(t, reverse, backward(l))

	var first []int
	for v := range l.All() {
		first = append(first, *v)
		if len(first) == 2 {
			break
		}
	}
	assert.Equal(t, []int{0, 10}, first)
}

func TestListUnlinkDuringIteration(t *testing.T) {
	l := New[int]()
	nodes := make([]Node[int], 6)
	for i := range nodes {
		nodes[i].Item = i
		l.LinkBack(&nodes[i])
	}
	for n := range l.Nodes() {
		if n.Item%2 == 0 {
			l.UnlinkNode(n)
		}
	}
	assert.Equal(t, []int{1, 3, 5}, values(l))
	assertRing(t, l)
}

func TestListZeroValue(t *testing.T) {
	var l List[int]
	assert.True(t, l.Empty())
	assert.Same(t, l.End(), l.Begin())
	assert.Empty(t, values(&l))

	n := &Node[int]{Item: 7}
	l.LinkFront(n)
	assert.Equal(t, 7, *l.Front())
	assertRing(t, &l)
}

func TestListRelease(t *testing.T) {
	l := New[int]()
	nodes := make([]Node[int], 3)
	for i := range nodes {
		nodes[i].Item = i + 1
		l.LinkBack(&nodes[i])
	}
	l.Release()
	assert.True(t, l.Empty())
	for i := range nodes {
		assert.False(t, nodes[i].Linked(), "node %d still linked", i)
		assert.Equal(t, i+1, nodes[i].Item, "Release must not touch payloads")
	}

	// Released nodes can join another list.
	other := New[int]()
	other.LinkBack(&nodes[1])
	assert.Equal(t, []int{2}, values(other))
}

func TestNodeRelease(t *testing.T) {
	l := New[*int]()
	v := 3
	n := &Node[*int]{Item: &v}
	l.LinkBack(n)
	requirePanicIs(t, ErrNodeLinked, n.Release)

	l.UnlinkNode(n)
	n.Release()
	assert.Nil(t, n.Item)
}

func TestListSizeAccounting(t *testing.T) {
	l := New[int]()
	nodes := make([]Node[int], 16)
	want := 0
	for round := 0; round < 4; round++ {
		for i := range nodes {
			if nodes[i].Linked() {
				continue
			}
			if (i+round)%3 == 0 {
				l.LinkFront(&nodes[i])
			} else {
				l.LinkBack(&nodes[i])
			}
			want++
			require.Equal(t, want, l.Len())
		}
		for i := round; i < len(nodes); i += 2 {
			if nodes[i].Linked() {
				l.UnlinkNode(&nodes[i])
				want--
				require.Equal(t, want, l.Len())
			}
		}
		assertRing(t, l)
	}
}

func TestListNodesFromMemoryPool(t *testing.T) {
	type request struct {
		id   int
		done bool
	}
	pool := slabpool.NewMemoryPool[Node[request]](8)
	pending := New[request]()

	for id := 1; id <= 8; id++ {
		n := pool.Allocate(Node[request]{Item: request{id: id}})
		require.NotNil(t, n)
		pending.LinkBack(n)
	}
	require.True(t, pool.Full())

	for n := range pending.Nodes() {
		if n.Item.id%3 == 0 {
			pending.UnlinkNode(n)
			n.Release()
			pool.Deallocate(n)
		}
	}
	assert.Equal(t, 6, pending.Len())
	assert.Equal(t, 2, pool.FreeBlockCount())

	n := pool.Allocate(Node[request]{Item: request{id: 9}})
	pending.LinkFront(n)
	assert.Equal(t, 9, pending.Front().id)

	var ids []int
	for r := range pending.All() {
		ids = append(ids, r.id)
	}
	assert.Equal(t, []int{9, 1, 2, 4, 5, 7, 8}, ids)

	pending.Release()
	for n := pool.Find(func(*Node[request]) bool { return true }); n != nil; n = pool.Find(func(*Node[request]) bool { return true }) {
		pool.Deallocate(n)
	}
	assert.True(t, pool.Empty())
}
