// Package store holds the client-side caches of API entities. Every change
// goes through a store method; callers only ever see copies.
package store

import (
	"errors"
	"fmt"
	"sync"

	"bizdesk/internal/domain"
)

// Entity is anything the cache can key by id.
type Entity interface {
	Key() int64
}

type OpType string

const (
	OpCreate     OpType = "create"
	OpUpdate     OpType = "update"
	OpDelete     OpType = "delete"
	OpStatus     OpType = "status"
	OpStage      OpType = "stage"
	OpReschedule OpType = "reschedule"
	OpResolve    OpType = "resolve"
	OpPrimary    OpType = "primary"
)

// Operation describes the in-flight or last completed mutating action.
type Operation struct {
	Type     OpType
	Loading  bool
	Success  bool
	Err      string
	TargetID int64
}

func (o Operation) Idle() bool { return o == Operation{} }

var (
	// ErrInFlight rejects a duplicate of an operation that is still loading.
	ErrInFlight = errors.New("operation already in progress")
	// ErrUnacknowledged rejects a new operation while an error of the same
	// type has not been reset by the consumer.
	ErrUnacknowledged = errors.New("previous operation error not acknowledged")
	// ErrStale is returned for list responses superseded by a newer request.
	ErrStale = errors.New("stale response discarded")
)

// Meta is the pagination info of the cached list.
type Meta struct {
	Page     int
	PerPage  int
	Total    int
	LastPage int
}

// ListState tracks the list fetch.
type ListState struct {
	Loading bool
	Err     string
}

// Ticket identifies one list request; only the newest ticket may apply.
type Ticket struct {
	gen uint64
}

type opKey struct {
	op     OpType
	target int64
}

// Cache is a normalized cache of one entity kind.
type Cache[T Entity] struct {
	mu       sync.Mutex
	items    []T
	meta     Meta
	list     ListState
	selected *T
	op       Operation
	inflight map[opKey]struct{}
	unacked  map[OpType]string
	gen      uint64
}

func NewCache[T Entity]() *Cache[T] {
	return &Cache[T]{inflight: map[opKey]struct{}{}, unacked: map[OpType]string{}}
}

// BeginList starts a list request and supersedes any earlier one.
func (c *Cache[T]) BeginList() Ticket {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.list = ListState{Loading: true}
	return Ticket{gen: c.gen}
}

// ApplyList replaces the cached list if t is still the newest ticket.
func (c *Cache[T]) ApplyList(t Ticket, page domain.Page[T]) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.gen != c.gen {
		return ErrStale
	}
	c.items = append([]T(nil), page.Items...)
	c.meta = Meta{Page: page.Page, PerPage: page.PerPage, Total: page.Total, LastPage: page.LastPage}
	c.list = ListState{}
	return nil
}

// FailList records a list error if t is still the newest ticket.
func (c *Cache[T]) FailList(t Ticket, err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.gen != c.gen {
		return ErrStale
	}
	c.list = ListState{Err: err.Error()}
	return nil
}

// Begin marks an operation as loading.
func (c *Cache[T]) Begin(op OpType, target int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := opKey{op: op, target: target}
	if _, busy := c.inflight[k]; busy {
		return fmt.Errorf("%s %d: %w", op, target, ErrInFlight)
	}
	if _, failed := c.unacked[op]; failed {
		return fmt.Errorf("%s: %w", op, ErrUnacknowledged)
	}
	c.inflight[k] = struct{}{}
	c.op = Operation{Type: op, Loading: true, TargetID: target}
	return nil
}

// Finish records the outcome of an operation started with Begin. A failure
// blocks further operations of the same type until ResetOperation.
func (c *Cache[T]) Finish(op OpType, target int64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, opKey{op: op, target: target})
	c.op = Operation{Type: op, TargetID: target, Success: err == nil}
	if err != nil {
		c.op.Err = err.Error()
		c.unacked[op] = c.op.Err
		return
	}
	delete(c.unacked, op)
}

// Busy reports whether op on target is loading.
func (c *Cache[T]) Busy(op OpType, target int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inflight[opKey{op: op, target: target}]
	return ok
}

func (c *Cache[T]) Operation() Operation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.op
}

// ResetOperation acknowledges every reported operation outcome.
func (c *Cache[T]) ResetOperation() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.unacked)
	if c.op.Loading {
		return
	}
	c.op = Operation{}
}

func (c *Cache[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]T(nil), c.items...)
}

func (c *Cache[T]) Meta() Meta {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.meta
}

func (c *Cache[T]) ListState() ListState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.list
}

func (c *Cache[T]) indexOf(id int64) int {
	for i, it := range c.items {
		if it.Key() == id {
			return i
		}
	}
	return -1
}

func (c *Cache[T]) Item(id int64) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexOf(id); i >= 0 {
		return c.items[i], true
	}
	var zero T
	return zero, false
}

// Upsert replaces the cached copy of item, or prepends it when new.
func (c *Cache[T]) Upsert(item T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.upsert(item)
}

func (c *Cache[T]) upsert(item T) {
	if i := c.indexOf(item.Key()); i >= 0 {
		c.items[i] = item
	} else {
		c.items = append([]T{item}, c.items...)
		c.meta.Total++
	}
	if c.selected != nil && (*c.selected).Key() == item.Key() {
		sel := item
		c.selected = &sel
	}
}

// Remove drops id from the list and the selection.
func (c *Cache[T]) Remove(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexOf(id); i >= 0 {
		c.items = append(c.items[:i], c.items[i+1:]...)
		if c.meta.Total > 0 {
			c.meta.Total--
		}
	}
	if c.selected != nil && (*c.selected).Key() == id {
		c.selected = nil
	}
}

func (c *Cache[T]) Select(item T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = &item
}

func (c *Cache[T]) ClearSelected() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = nil
}

func (c *Cache[T]) Selected() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected == nil {
		var zero T
		return zero, false
	}
	return *c.selected, true
}

// Patch applies fn to the cached copy of id and returns a rollback that
// restores the previous value. ok is false when id is not cached.
func (c *Cache[T]) Patch(id int64, fn func(*T)) (rollback func(), ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(id)
	if i < 0 {
		return func() {}, false
	}
	prev := c.items[i]
	next := prev
	fn(&next)
	c.upsert(next)
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.indexOf(id) >= 0 {
			c.upsert(prev)
		}
	}, true
}
