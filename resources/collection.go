// Package resources keeps in-memory copies of the API's collections and
// resyncs them after every mutation.
package resources

import (
	"context"
	"errors"
	"slices"
	"sync"

	log "github.com/sirupsen/logrus"

	"studenthub/client"
	"studenthub/domain"
)

// ErrNotFound is returned when an operation needs a record that is not in the
// local list.
var ErrNotFound = errors.New("not found in local list")

// Messages are the user-facing strings set when an operation fails.
type Messages struct {
	Fetch  string
	Create string
	Update string
	Delete string
}

func messagesFor(singular, plural string) Messages {
	return Messages{
		Fetch:  "Failed to load " + plural + ". Please try again.",
		Create: "Failed to create " + singular + ". Please try again.",
		Update: "Failed to update " + singular + ". Please try again.",
		Delete: "Failed to delete " + singular + ". Please try again.",
	}
}

// Collection is the generic store behind every resource: a list, a loading
// flag and the last user-facing error.
type Collection[T domain.Entity, C, U any] struct {
	name string
	api  client.ResourceAPI[T, C, U]
	msgs Messages
	log  *log.Logger

	mu      sync.RWMutex
	items   []T
	loading int
	err     string
}

func newCollection[T domain.Entity, C, U any](name string, api client.ResourceAPI[T, C, U], msgs Messages, logger *log.Logger) *Collection[T, C, U] {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Collection[T, C, U]{name: name, api: api, msgs: msgs, log: logger}
}

// begin marks an operation in flight and clears the previous error. The
// returned func must be deferred.
func (c *Collection[T, C, U]) begin() func() {
	c.mu.Lock()
	c.loading++
	c.err = ""
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		c.loading--
		c.mu.Unlock()
	}
}

func (c *Collection[T, C, U]) fail(op, msg string, err error) error {
	c.mu.Lock()
	c.err = msg
	c.mu.Unlock()
	c.log.WithFields(log.Fields{"resource": c.name, "op": op}).WithError(err).Error(msg)
	return err
}

// FetchAll replaces the local list with the server's collection.
func (c *Collection[T, C, U]) FetchAll(ctx context.Context) error {
	defer c.begin()()
	items, err := c.api.List(ctx)
	if err != nil {
		return c.fail("fetch", c.msgs.Fetch, err)
	}
	c.Set(items)
	return nil
}

// Create validates data, posts it and appends the server's record.
func (c *Collection[T, C, U]) Create(ctx context.Context, data C) (T, error) {
	defer c.begin()()
	var zero T
	if v, ok := any(data).(domain.Validator); ok {
		if err := v.Validate(); err != nil {
			return zero, c.fail("create", c.msgs.Create, err)
		}
	}
	item, err := c.api.Create(ctx, data)
	if err != nil {
		return zero, c.fail("create", c.msgs.Create, err)
	}
	c.upsert(item)
	return item, nil
}

// Update puts data and then refetches the single item to replace it locally.
func (c *Collection[T, C, U]) Update(ctx context.Context, id int, data U) (T, error) {
	defer c.begin()()
	var zero T
	if v, ok := any(data).(domain.Validator); ok {
		if err := v.Validate(); err != nil {
			return zero, c.fail("update", c.msgs.Update, err)
		}
	}
	if _, err := c.api.Update(ctx, id, data); err != nil {
		return zero, c.fail("update", c.msgs.Update, err)
	}
	item, err := c.api.Get(ctx, id)
	if err != nil {
		return zero, c.fail("update", c.msgs.Update, err)
	}
	c.upsert(item)
	return item, nil
}

// Delete removes the record remotely and then from the local list.
func (c *Collection[T, C, U]) Delete(ctx context.Context, id int) error {
	defer c.begin()()
	if err := c.api.Delete(ctx, id); err != nil {
		return c.fail("delete", c.msgs.Delete, err)
	}
	c.mu.Lock()
	c.items = slices.DeleteFunc(c.items, func(it T) bool { return it.ID() == id })
	c.mu.Unlock()
	return nil
}

// upsert replaces the item with the same id in place or appends it.
func (c *Collection[T, C, U]) upsert(item T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ID() == item.ID() {
			c.items[i] = item
			return
		}
	}
	c.items = append(c.items, item)
}

// Set replaces the local list without contacting the server.
func (c *Collection[T, C, U]) Set(items []T) {
	c.mu.Lock()
	c.items = slices.Clone(items)
	c.mu.Unlock()
}

// Items returns a copy of the local list.
func (c *Collection[T, C, U]) Items() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.items)
}

// GetByID looks the id up in the local list.
func (c *Collection[T, C, U]) GetByID(id int) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, it := range c.items {
		if it.ID() == id {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// Filter returns the local items matching keep.
func (c *Collection[T, C, U]) Filter(keep func(T) bool) []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := []T{}
	for _, it := range c.items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

func (c *Collection[T, C, U]) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading > 0
}

// Err is the user-facing message of the last failed operation, or "".
func (c *Collection[T, C, U]) Err() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// SetErr overrides the user-facing message; callers composing several
// operations use it to report the outer failure.
func (c *Collection[T, C, U]) SetErr(msg string) {
	c.mu.Lock()
	c.err = msg
	c.mu.Unlock()
}
