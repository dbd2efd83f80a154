package queue

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPriorityQueueOrder(t *testing.T) {
	pq := New[string](4)
	pq.Push("c", 3)
	pq.Push("a", 1)
	pq.Push("d", 4)
	pq.Push("b", 2)

	require.Equal(t, 4, pq.Len())

	key, prio, ok := pq.Peek()
	require.True(t, ok)
	require.Equal(t, "a", key)
	require.Equal(t, 1.0, prio)
	require.Equal(t, 4, pq.Len())

	var got []string
	for pq.Len() > 0 {
		key, _, ok := pq.Pop()
		require.True(t, ok)
		got = append(got, key)
	}
	require.Equal(t, []string{"a", "b", "c", "d"}, got)

	_, _, ok = pq.Pop()
	require.False(t, ok)
	_, _, ok = pq.Peek()
	require.False(t, ok)
}

func TestPriorityQueueTiesKeepInsertionOrder(t *testing.T) {
	pq := New[int](0)
	for i := 0; i < 10; i++ {
		pq.Push(i, 5)
	}

	for i := 0; i < 10; i++ {
		key, _, _ := pq.Pop()
		require.Equal(t, i, key)
	}
}

func TestPriorityQueueUpdate(t *testing.T) {
	pq := New[int](0)
	pq.Push(1, 10)
	pq.Push(2, 20)
	pq.Push(3, 30)

	require.True(t, pq.Update(3, 5))
	require.False(t, pq.Update(4, 1))

	prio, ok := pq.Priority(3)
	require.True(t, ok)
	require.Equal(t, 5.0, prio)

	key, _, _ := pq.Peek()
	require.Equal(t, 3, key)

	// Pushing a queued key updates it.
	pq.Push(1, 50)
	require.Equal(t, 3, pq.Len())

	var got []int
	for pq.Len() > 0 {
		key, _, _ := pq.Pop()
		got = append(got, key)
	}
	require.Equal(t, []int{3, 2, 1}, got)
}

func TestPriorityQueueContains(t *testing.T) {
	pq := New[int](0)
	pq.Push(7, 1)
	require.True(t, pq.Contains(7))
	require.False(t, pq.Contains(8))

	pq.Pop()
	require.False(t, pq.Contains(7))

	_, ok := pq.Priority(7)
	require.False(t, ok)
}

func TestPriorityQueueRandomized(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	pq := New[int](128)
	want := make(map[int]float64)

	for i := 0; i < 1000; i++ {
		key := r.Intn(200)
		prio := r.Float64() * 100
		pq.Push(key, prio)
		want[key] = prio
	}
	require.Equal(t, len(want), pq.Len())

	var prios []float64
	for pq.Len() > 0 {
		key, prio, _ := pq.Pop()
		require.Equal(t, want[key], prio)
		prios = append(prios, prio)
	}
	require.True(t, sort.Float64sAreSorted(prios))
}

func TestPriorityQueueReset(t *testing.T) {
	pq := New[int](0)
	pq.Push(1, 1)
	pq.Push(2, 2)

	pq.Reset()
	require.Zero(t, pq.Len())
	require.False(t, pq.Contains(1))

	pq.Push(2, 2)
	key, _, _ := pq.Pop()
	require.Equal(t, 2, key)
}
