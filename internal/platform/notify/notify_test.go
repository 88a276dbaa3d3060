package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotifier_RegistrationOrder(t *testing.T) {
	var n Notifier[int]
	var calls []string
	n.Subscribe(ListenerFunc[int](func([]int) { calls = append(calls, "a") }))
	n.Subscribe(ListenerFunc[int](func([]int) { calls = append(calls, "b") }))
	n.Subscribe(ListenerFunc[int](func([]int) { calls = append(calls, "c") }))

	n.Notify([]int{1})

	assert.Equal(t, []string{"a", "b", "c"}, calls)
}

func TestNotifier_DeliversSnapshot(t *testing.T) {
	var n Notifier[string]
	var got []string
	n.Subscribe(ListenerFunc[string](func(s []string) { got = s }))

	n.Notify([]string{"bed-1", "bed-2"})

	assert.Equal(t, []string{"bed-1", "bed-2"}, got)
}

func TestNotifier_Unsubscribe(t *testing.T) {
	var n Notifier[int]
	count := 0
	unsubscribe := n.Subscribe(ListenerFunc[int](func([]int) { count++ }))

	n.Notify(nil)
	unsubscribe()
	unsubscribe()
	n.Notify(nil)

	assert.Equal(t, 1, count)
	assert.Equal(t, 0, n.Len())
}

func TestNotifier_UnsubscribeDuringPass(t *testing.T) {
	var n Notifier[int]
	var calls []string
	var unsubscribeB func()

	n.Subscribe(ListenerFunc[int](func([]int) {
		calls = append(calls, "a")
		unsubscribeB()
	}))
	unsubscribeB = n.Subscribe(ListenerFunc[int](func([]int) { calls = append(calls, "b") }))
	n.Subscribe(ListenerFunc[int](func([]int) { calls = append(calls, "c") }))

	assert.NotPanics(t, func() { n.Notify(nil) })
	assert.Equal(t, []string{"a", "b", "c"}, calls, "in-progress pass is unaffected")

	calls = nil
	n.Notify(nil)
	assert.Equal(t, []string{"a", "c"}, calls)
}

func TestNotifier_SelfUnsubscribe(t *testing.T) {
	var n Notifier[int]
	count := 0
	var unsubscribe func()
	unsubscribe = n.Subscribe(ListenerFunc[int](func([]int) {
		count++
		unsubscribe()
	}))

	n.Notify(nil)
	n.Notify(nil)

	assert.Equal(t, 1, count)
}

func TestNotifier_SubscribeDuringPass(t *testing.T) {
	var n Notifier[int]
	late := 0
	n.Subscribe(ListenerFunc[int](func([]int) {
		n.Subscribe(ListenerFunc[int](func([]int) { late++ }))
	}))

	n.Notify(nil)
	assert.Equal(t, 0, late)

	n.Notify(nil)
	assert.Equal(t, 1, late)
}
