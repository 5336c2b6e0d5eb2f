package client

import (
	"context"
	"strconv"
)

// ResourceAPI is the CRUD surface shared by every collection endpoint.
type ResourceAPI[T, C, U any] interface {
	List(ctx context.Context) ([]T, error)
	Get(ctx context.Context, id int) (T, error)
	Create(ctx context.Context, data C) (T, error)
	Update(ctx context.Context, id int, data U) (T, error)
	Delete(ctx context.Context, id int) error
}

// Resource is the HTTP implementation of ResourceAPI for one collection path.
type Resource[T, C, U any] struct {
	c    *Client
	path string
}

// NewResource binds a collection path such as "/courses" to a client.
func NewResource[T, C, U any](c *Client, path string) *Resource[T, C, U] {
	return &Resource[T, C, U]{c: c, path: path}
}

func (r *Resource[T, C, U]) itemPath(id int) string {
	return r.path + "/" + strconv.Itoa(id)
}

func (r *Resource[T, C, U]) List(ctx context.Context) ([]T, error) {
	items := []T{}
	if err := r.c.GetJSON(ctx, r.path, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func (r *Resource[T, C, U]) Get(ctx context.Context, id int) (T, error) {
	var item T
	err := r.c.GetJSON(ctx, r.itemPath(id), &item)
	return item, err
}

func (r *Resource[T, C, U]) Create(ctx context.Context, data C) (T, error) {
	var item T
	err := r.c.PostJSON(ctx, r.path, data, &item)
	return item, err
}

func (r *Resource[T, C, U]) Update(ctx context.Context, id int, data U) (T, error) {
	var item T
	err := r.c.PutJSON(ctx, r.itemPath(id), data, &item)
	return item, err
}

func (r *Resource[T, C, U]) Delete(ctx context.Context, id int) error {
	return r.c.Delete(ctx, r.itemPath(id))
}
