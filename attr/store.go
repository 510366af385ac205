// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package attr

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"honnef.co/go/safeish"

	"github.com/gogpu/retained/gpucore"
	"github.com/gogpu/retained/internal/logx"
)

// Errors returned by Store.
var (
	// ErrInvalidCapacity is returned when a store is created with a
	// non-positive capacity.
	ErrInvalidCapacity = errors.New("attr: capacity must be positive")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("attr: store closed")
)

// FlushStats describes the uploads issued by one Flush.
type FlushStats struct {
	// Writes is the number of WriteBuffer calls.
	Writes int

	// Bytes is the number of bytes uploaded.
	Bytes int

	// Full reports whether the whole buffer was re-uploaded.
	Full bool
}

// Add accumulates o into s.
func (s *FlushStats) Add(o FlushStats) {
	s.Writes += o.Writes
	s.Bytes += o.Bytes
	s.Full = s.Full || o.Full
}

// Store keeps one attribute of every slot in a CPU array mirrored by a GPU
// buffer of equal capacity.
//
// Set updates the CPU array immediately and remembers the slot as pending;
// Flush uploads pending slots as coalesced contiguous ranges. After a
// successful Flush the GPU buffer equals the CPU array.
//
// T must be a fixed-size value type without pointers; its in-memory layout
// is uploaded as is.
//
// Store is not safe for concurrent use.
type Store[T comparable] struct {
	adapter  gpucore.Adapter
	label    string
	null     T
	elemSize int

	values  []T
	cached  []bool
	pending map[int]T

	buffer gpucore.BufferID
	full   bool
	closed bool
}

// NewStore creates a store of capacity slots filled with null and a GPU
// buffer to mirror it. The first Flush uploads the whole array.
func NewStore[T comparable](adapter gpucore.Adapter, label string, capacity int, null T) (*Store[T], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: %s: %d", ErrInvalidCapacity, label, capacity)
	}
	s := &Store[T]{
		adapter:  adapter,
		label:    label,
		null:     null,
		elemSize: len(safeish.AsBytes(&null)),
		pending:  make(map[int]T),
	}
	s.values = fill(make([]T, capacity), null)
	s.cached = make([]bool, capacity)

	buf, err := s.createBuffer(capacity)
	if err != nil {
		return nil, err
	}
	s.buffer = buf
	s.full = true
	return s, nil
}

func fill[T any](v []T, x T) []T {
	for i := range v {
		v[i] = x
	}
	return v
}

func (s *Store[T]) createBuffer(capacity int) (gpucore.BufferID, error) {
	size := capacity * s.elemSize
	buf, err := s.adapter.CreateBuffer(s.label, size, gpucore.BufferUsageVertex|gpucore.BufferUsageCopyDst)
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("attr: create %s buffer (%d bytes): %w", s.label, size, err)
	}
	logx.Logger().Debug("attr: buffer created", "store", s.label, "capacity", capacity, "bytes", size)
	return buf, nil
}

func (s *Store[T]) checkSlot(slot int) {
	if slot < 0 || slot >= len(s.values) {
		panic(fmt.Sprintf("attr: %s slot %d out of range [0, %d)", s.label, slot, len(s.values)))
	}
}

// Set stores v at slot. It does nothing if slot already caches v; otherwise
// the CPU array is updated at once and the slot becomes pending, with the
// last value written in a frame winning.
//
// Set panics if slot is outside the capacity: slots come from an indexer,
// so an out-of-range slot means Resize was skipped.
func (s *Store[T]) Set(slot int, v T) {
	s.checkSlot(slot)
	if s.cached[slot] && s.values[slot] == v {
		return
	}
	s.values[slot] = v
	s.cached[slot] = true
	s.pending[slot] = v
}

// Get returns the CPU value at slot.
func (s *Store[T]) Get(slot int) T {
	s.checkSlot(slot)
	return s.values[slot]
}

// Pending returns the number of slots waiting for upload.
func (s *Store[T]) Pending() int { return len(s.pending) }

// PendingValue returns the value pending at slot, if any.
func (s *Store[T]) PendingValue(slot int) (T, bool) {
	v, ok := s.pending[slot]
	return v, ok
}

// PendingSlots returns the pending slots in ascending order.
func (s *Store[T]) PendingSlots() []int {
	return slices.Sorted(maps.Keys(s.pending))
}

// Capacity returns the number of slots.
func (s *Store[T]) Capacity() int { return len(s.values) }

// Label returns the debug label of the store.
func (s *Store[T]) Label() string { return s.label }

// ElemSize returns the byte size of one element.
func (s *Store[T]) ElemSize() int { return s.elemSize }

// Buffer returns the current GPU buffer. It changes on every Resize.
func (s *Store[T]) Buffer() gpucore.BufferID { return s.buffer }

// Values returns the CPU array. The slice must not be modified.
func (s *Store[T]) Values() []T { return s.values }

// Bytes returns the CPU array as uploaded bytes.
func (s *Store[T]) Bytes() []byte { return safeish.SliceCast[[]byte](s.values) }

// Resize grows the store to capacity slots. Existing values are kept, new
// slots are filled with the null value, the GPU buffer is recreated and the
// next Flush re-uploads the whole array. Requests that do not grow the store
// are ignored.
func (s *Store[T]) Resize(capacity int) error {
	if s.closed {
		return ErrClosed
	}
	old := len(s.values)
	if capacity <= old {
		return nil
	}
	buf, err := s.createBuffer(capacity)
	if err != nil {
		return err
	}
	s.adapter.DestroyBuffer(s.buffer)
	s.buffer = buf

	s.values = append(s.values, fill(make([]T, capacity-old), s.null)...)
	s.cached = append(s.cached, make([]bool, capacity-old)...)
	s.full = true
	logx.Logger().Debug("attr: store resized", "store", s.label, "from", old, "to", capacity)
	return nil
}

// Flush uploads pending slots and clears the pending set.
//
// After a Resize the whole array is written in one call. Otherwise pending
// slots are coalesced into maximal consecutive runs and each run is written
// once at byte offset run.Start*ElemSize.
func (s *Store[T]) Flush() (FlushStats, error) {
	if s.closed {
		return FlushStats{}, ErrClosed
	}
	var st FlushStats
	if s.full {
		data := s.Bytes()
		s.adapter.WriteBuffer(s.buffer, 0, data)
		st = FlushStats{Writes: 1, Bytes: len(data), Full: true}
		s.full = false
		clear(s.pending)
		return st, nil
	}
	if len(s.pending) == 0 {
		return st, nil
	}
	for _, run := range Coalesce(s.PendingSlots()) {
		data := safeish.SliceCast[[]byte](s.values[run.Start : run.End+1])
		s.adapter.WriteBuffer(s.buffer, uint64(run.Start*s.elemSize), data)
		st.Writes++
		st.Bytes += len(data)
	}
	clear(s.pending)
	return st, nil
}

// Close destroys the GPU buffer. Further Resize and Flush calls fail.
func (s *Store[T]) Close() {
	if s.closed {
		return
	}
	s.adapter.DestroyBuffer(s.buffer)
	s.buffer = gpucore.InvalidID
	s.closed = true
}
