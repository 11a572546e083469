// Package replicate holds the observed copies of host-replicated state.
// Values are written only by the snapshot-application path; any goroutine
// may read them or subscribe to per-field change callbacks.
package replicate

import "sync"

// Var is a replicated scalar. Reads see the last value written; the
// callback fires only when the value actually changes.
type Var[T comparable] struct {
	mu        sync.Mutex
	value     T
	observers []func(old, new T)
}

func (v *Var[T]) Get() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.value
}

func (v *Var[T]) Set(value T) {
	v.mu.Lock()
	if value == v.value {
		v.mu.Unlock()
		return
	}
	old := v.value
	v.value = value
	observers := append([]func(old, new T){}, v.observers...)
	v.mu.Unlock()

	for _, fn := range observers {
		fn(old, value)
	}
}

// OnChange registers an observer. Observers run synchronously on the
// goroutine that applies the snapshot.
func (v *Var[T]) OnChange(fn func(old, new T)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.observers = append(v.observers, fn)
}

// List is a replicated ordered list. Mutations are visible in the order
// they were applied at the host.
type List[T any] struct {
	mu        sync.Mutex
	items     []T
	observers []func([]T)
}

func (l *List[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

func (l *List[T]) Get(i int) T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.items[i]
}

func (l *List[T]) All() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]T(nil), l.items...)
}

func (l *List[T]) Append(item T) {
	l.mu.Lock()
	l.items = append(l.items, item)
	l.notifyLocked()
}

func (l *List[T]) Set(i int, item T) {
	l.mu.Lock()
	l.items[i] = item
	l.notifyLocked()
}

// Replace swaps the whole list, as snapshot application does.
func (l *List[T]) Replace(items []T) {
	l.mu.Lock()
	l.items = append([]T(nil), items...)
	l.notifyLocked()
}

func (l *List[T]) OnChange(fn func([]T)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.observers = append(l.observers, fn)
}

// notifyLocked is entered holding mu and releases it before running the
// observers, so an observer may call back into the list.
func (l *List[T]) notifyLocked() {
	snapshot := append([]T(nil), l.items...)
	observers := append([]func([]T){}, l.observers...)
	l.mu.Unlock()

	for _, fn := range observers {
		fn(snapshot)
	}
}
