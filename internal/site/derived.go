package site

import "sync"

// Derived caches a value computed from site state until invalidated. It is
// safe for concurrent use by render workers.
type Derived[T any] struct {
	mu      sync.Mutex
	compute func() T
	value   T
	valid   bool
}

// NewDerived wraps compute in a cache.
func NewDerived[T any](compute func() T) *Derived[T] {
	return &Derived[T]{compute: compute}
}

// Get returns the cached value, computing it on first use.
func (d *Derived[T]) Get() T {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.valid {
		d.value = d.compute()
		d.valid = true
	}
	return d.value
}

// Invalidate drops the cached value.
func (d *Derived[T]) Invalidate() {
	d.mu.Lock()
	defer d.mu.Unlock()
	var zero T
	d.value = zero
	d.valid = false
}
