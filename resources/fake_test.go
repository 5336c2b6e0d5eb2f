package resources

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"studenthub/domain"
)

var errBoom = errors.New("boom")

// fakeAPI is an in-memory ResourceAPI. build turns a create payload into a
// record with the given id; patch applies an update payload.
type fakeAPI[T domain.Entity, C, U any] struct {
	mu     sync.Mutex
	items  []T
	nextID int
	build  func(id int, c C) T
	patch  func(item T, u U) T
	fail   map[string]error
	calls  []string
}

func (f *fakeAPI[T, C, U]) record(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
	return f.fail[op]
}

func (f *fakeAPI[T, C, U]) List(ctx context.Context) ([]T, error) {
	if err := f.record("list"); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]T{}, f.items...), nil
}

func (f *fakeAPI[T, C, U]) Get(ctx context.Context, id int) (T, error) {
	var zero T
	if err := f.record("get"); err != nil {
		return zero, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, it := range f.items {
		if it.ID() == id {
			return it, nil
		}
	}
	return zero, fmt.Errorf("id %d: %w", id, errBoom)
}

func (f *fakeAPI[T, C, U]) Create(ctx context.Context, data C) (T, error) {
	var zero T
	if err := f.record("create"); err != nil {
		return zero, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	item := f.build(f.nextID, data)
	f.items = append(f.items, item)
	return item, nil
}

func (f *fakeAPI[T, C, U]) Update(ctx context.Context, id int, data U) (T, error) {
	var zero T
	if err := f.record("update"); err != nil {
		return zero, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, it := range f.items {
		if it.ID() == id {
			f.items[i] = f.patch(it, data)
			return f.items[i], nil
		}
	}
	return zero, errBoom
}

func (f *fakeAPI[T, C, U]) Delete(ctx context.Context, id int) error {
	if err := f.record("delete"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, it := range f.items {
		if it.ID() == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return errBoom
}

func newCourseAPI(items ...domain.Course) *fakeAPI[domain.Course, domain.CourseCreate, domain.CourseUpdate] {
	return &fakeAPI[domain.Course, domain.CourseCreate, domain.CourseUpdate]{
		items:  items,
		nextID: 100,
		build: func(id int, c domain.CourseCreate) domain.Course {
			return domain.Course{CourseID: id, Title: c.Title, CategoryID: c.CategoryID, IsActive: c.IsActive}
		},
		patch: func(co domain.Course, u domain.CourseUpdate) domain.Course {
			if u.Title != nil {
				co.Title = *u.Title
			}
			return co
		},
	}
}

func newEnrollmentAPI(items ...domain.Enrollment) *fakeAPI[domain.Enrollment, domain.EnrollmentCreate, domain.EnrollmentUpdate] {
	return &fakeAPI[domain.Enrollment, domain.EnrollmentCreate, domain.EnrollmentUpdate]{
		items:  items,
		nextID: 100,
		build: func(id int, c domain.EnrollmentCreate) domain.Enrollment {
			return domain.Enrollment{EnrollmentID: id, StudentID: c.StudentID, CourseID: c.CourseID, AssignerID: c.AssignerID, IsActive: true}
		},
		patch: func(e domain.Enrollment, u domain.EnrollmentUpdate) domain.Enrollment { return e },
	}
}

func newUserAPI(items ...domain.User) *fakeAPI[domain.User, domain.UserCreate, domain.UserUpdate] {
	return &fakeAPI[domain.User, domain.UserCreate, domain.UserUpdate]{
		items:  items,
		nextID: 100,
		build: func(id int, c domain.UserCreate) domain.User {
			return domain.User{UserID: id, Username: c.Username}
		},
		patch: func(u domain.User, _ domain.UserUpdate) domain.User { return u },
	}
}

func newCompletionAPI(items ...domain.TaskCompletion) *fakeAPI[domain.TaskCompletion, domain.TaskCompletionCreate, domain.TaskCompletionCreate] {
	return &fakeAPI[domain.TaskCompletion, domain.TaskCompletionCreate, domain.TaskCompletionCreate]{
		items:  items,
		nextID: 100,
		build: func(id int, c domain.TaskCompletionCreate) domain.TaskCompletion {
			return domain.TaskCompletion{TaskCompletionID: id, EnrollmentID: c.EnrollmentID, TaskID: c.TaskID, IsActive: c.IsActive, CompletedAt: c.CompletedAt}
		},
		patch: func(tc domain.TaskCompletion, u domain.TaskCompletionCreate) domain.TaskCompletion {
			tc.IsActive = u.IsActive
			tc.CompletedAt = u.CompletedAt
			return tc
		},
	}
}
