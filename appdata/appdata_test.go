package appdata

import (
	"context"
	"errors"
	"sync"
	"testing"

	log "github.com/sirupsen/logrus"

	"studenthub/domain"
	"studenthub/internal/assertx"
	"studenthub/resources"
)

var errDown = errors.New("api down")

type listAPI[T domain.Entity, C, U any] struct {
	mu      sync.Mutex
	items   []T
	listErr error
	lists   int
}

func (f *listAPI[T, C, U]) List(ctx context.Context) ([]T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]T{}, f.items...), nil
}

func (f *listAPI[T, C, U]) Get(ctx context.Context, id int) (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, it := range f.items {
		if it.ID() == id {
			return it, nil
		}
	}
	var zero T
	return zero, errDown
}

func (f *listAPI[T, C, U]) Create(ctx context.Context, data C) (T, error) {
	var zero T
	return zero, errDown
}

func (f *listAPI[T, C, U]) Update(ctx context.Context, id int, data U) (T, error) {
	var zero T
	return zero, errDown
}

func (f *listAPI[T, C, U]) Delete(ctx context.Context, id int) error { return errDown }

// completionAPI stores created and updated completions so refetches see them.
type completionAPI struct {
	listAPI[domain.TaskCompletion, domain.TaskCompletionCreate, domain.TaskCompletionCreate]
	createErr error
}

func (f *completionAPI) Create(ctx context.Context, data domain.TaskCompletionCreate) (domain.TaskCompletion, error) {
	if f.createErr != nil {
		return domain.TaskCompletion{}, f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c := domain.TaskCompletion{
		TaskCompletionID: 500 + len(f.items),
		EnrollmentID:     data.EnrollmentID,
		TaskID:           data.TaskID,
		IsActive:         data.IsActive,
		CompletedAt:      data.CompletedAt,
	}
	f.items = append(f.items, c)
	return c, nil
}

func (f *completionAPI) Update(ctx context.Context, id int, data domain.TaskCompletionCreate) (domain.TaskCompletion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.items {
		if c.TaskCompletionID == id {
			f.items[i].IsActive = data.IsActive
			f.items[i].CompletedAt = data.CompletedAt
			return f.items[i], nil
		}
	}
	return domain.TaskCompletion{}, errDown
}

type fixture struct {
	courses     *listAPI[domain.Course, domain.CourseCreate, domain.CourseUpdate]
	tasks       *listAPI[domain.Task, domain.TaskCreate, domain.TaskUpdate]
	enrollments *listAPI[domain.Enrollment, domain.EnrollmentCreate, domain.EnrollmentUpdate]
	users       *listAPI[domain.User, domain.UserCreate, domain.UserUpdate]
	completions *completionAPI
}

type staticUser struct{ u *domain.User }

func (s staticUser) User() *domain.User { return s.u }

func newFixture() *fixture {
	return &fixture{
		courses: &listAPI[domain.Course, domain.CourseCreate, domain.CourseUpdate]{items: []domain.Course{
			{CourseID: 10, Title: "Algebra", CategoryID: 1},
			{CourseID: 20, Title: "Poetry", CategoryID: 1},
		}},
		tasks: &listAPI[domain.Task, domain.TaskCreate, domain.TaskUpdate]{items: []domain.Task{
			{TaskID: 5, Title: "Fractions", CourseID: 10},
			{TaskID: 6, Title: "Equations", CourseID: 10},
			{TaskID: 7, Title: "Sonnets", CourseID: 20},
			{TaskID: 8, Title: "Orphan", CourseID: 30},
		}},
		enrollments: &listAPI[domain.Enrollment, domain.EnrollmentCreate, domain.EnrollmentUpdate]{items: []domain.Enrollment{
			{EnrollmentID: 100, StudentID: 1, CourseID: 10, AssignerID: 9},
			{EnrollmentID: 101, StudentID: 1, CourseID: 30, AssignerID: 9},
			{EnrollmentID: 102, StudentID: 2, CourseID: 20, AssignerID: 9},
			{EnrollmentID: 103, StudentID: 1, CourseID: 20, AssignerID: 42},
		}},
		users: &listAPI[domain.User, domain.UserCreate, domain.UserUpdate]{items: []domain.User{
			{UserID: 1, FirstName: "Ana", LastName: "Silva"},
			{UserID: 9, FirstName: "Marta", LastName: "Reis"},
		}},
		completions: &completionAPI{},
	}
}

func (f *fixture) appData(t *testing.T, user *domain.User) *AppData {
	t.Helper()
	logger := log.New()
	logger.SetLevel(log.PanicLevel)
	set := &resources.Set{
		Courses:         resources.NewCourses(f.courses, logger),
		Tasks:           resources.NewTasks(f.tasks, logger),
		Enrollments:     resources.NewEnrollments(f.enrollments, logger),
		Users:           resources.NewUsers(f.users, logger),
		TaskCompletions: resources.NewTaskCompletions(f.completions, f.enrollments, f.users, logger),
	}
	return New(set, staticUser{user}, logger)
}

func TestNotStartedWithoutCompletion(t *testing.T) {
	f := newFixture()
	a := f.appData(t, &domain.User{UserID: 1})
	assertx.NoErr(t, a.RefreshAll(context.Background()))

	items := a.TasksByStatus(domain.StatusNotStarted)
	found := false
	for _, it := range items {
		if it.Task.TaskID == 5 && it.Course.CourseID == 10 {
			found = true
			assertx.Equal(t, 100, it.EnrollmentID)
			assertx.Equal(t, 0, it.TaskCompletionID)
			assertx.Equal(t, "Marta Reis", it.AssignerName)
		}
	}
	if !found {
		t.Fatalf("task 5 of course 10 missing from %+v", items)
	}
	// tasks 5, 6 from course 10 and 7 from course 20; course 30 is unknown
	assertx.Equal(t, 3, len(items))
}

func TestStatusFollowsCompletion(t *testing.T) {
	f := newFixture()
	f.completions.items = []domain.TaskCompletion{
		{TaskCompletionID: 1, EnrollmentID: 100, TaskID: 5, IsActive: true},
		{TaskCompletionID: 2, EnrollmentID: 100, TaskID: 6},
		{TaskCompletionID: 3, EnrollmentID: 102, TaskID: 7, IsActive: true},
	}
	a := f.appData(t, &domain.User{UserID: 1})
	assertx.NoErr(t, a.RefreshAll(context.Background()))

	completed := a.TasksByStatus(domain.StatusCompleted)
	assertx.Equal(t, 1, len(completed))
	assertx.Equal(t, 5, completed[0].Task.TaskID)
	assertx.Equal(t, 1, completed[0].TaskCompletionID)

	pending := a.TasksByStatus(domain.StatusPending)
	assertx.Equal(t, 1, len(pending))
	assertx.Equal(t, 6, pending[0].Task.TaskID)

	notStarted := a.TasksByStatus(domain.StatusNotStarted)
	assertx.Equal(t, 1, len(notStarted))
	assertx.Equal(t, 7, notStarted[0].Task.TaskID)
	assertx.Equal(t, "Unknown", notStarted[0].AssignerName)

	b := a.Board()
	assertx.Equal(t, 1, len(b.Group(domain.StatusCompleted)))
	assertx.Equal(t, 1, len(b.Group(domain.StatusPending)))
	assertx.Equal(t, 1, len(b.Group(domain.StatusNotStarted)))
}

func TestAnonymousGetsNothing(t *testing.T) {
	f := newFixture()
	a := f.appData(t, nil)
	assertx.NoErr(t, a.RefreshAll(context.Background()))

	assertx.Equal(t, 0, f.completions.lists)
	assertx.Equal(t, 0, len(a.TasksByStatus(domain.StatusNotStarted)))
	assertx.Equal(t, 0, len(a.TasksToReview()))
	if err := a.CompleteTask(context.Background(), 5); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestRefreshAllReportsFirstFailure(t *testing.T) {
	f := newFixture()
	f.tasks.listErr = errDown
	f.users.listErr = errDown
	a := f.appData(t, &domain.User{UserID: 1})

	err := a.RefreshAll(context.Background())
	if !errors.Is(err, errDown) {
		t.Fatalf("expected joined api error, got %v", err)
	}
	assertx.Equal(t, "Failed to load tasks", a.Err())
	assertx.Equal(t, false, a.Loading())
	assertx.Equal(t, 2, len(a.Courses.Items()))
}

func TestTasksToReview(t *testing.T) {
	f := newFixture()
	f.completions.items = []domain.TaskCompletion{
		{TaskCompletionID: 1, EnrollmentID: 100, TaskID: 5},
		{TaskCompletionID: 2, EnrollmentID: 102, TaskID: 7},
		{TaskCompletionID: 3, EnrollmentID: 100, TaskID: 6, IsActive: true},
		{TaskCompletionID: 4, EnrollmentID: 103, TaskID: 7},
	}
	a := f.appData(t, &domain.User{UserID: 9})
	assertx.NoErr(t, a.RefreshAll(context.Background()))

	review := a.TasksToReview()
	assertx.Equal(t, 2, len(review))
	assertx.Equal(t, "Ana Silva", review[0].StudentName)
	assertx.Equal(t, "Fractions", review[0].Task.Title)
	assertx.Equal(t, "Algebra", review[0].Course.Title)
	assertx.Equal(t, "Unknown Student", review[1].StudentName)
}

func TestCompleteAndApprove(t *testing.T) {
	f := newFixture()
	student := f.appData(t, &domain.User{UserID: 1})
	ctx := context.Background()
	assertx.NoErr(t, student.RefreshAll(ctx))

	assertx.NoErr(t, student.CompleteTask(ctx, 5))
	pending := student.TasksByStatus(domain.StatusPending)
	assertx.Equal(t, 1, len(pending))
	assertx.Equal(t, 5, pending[0].Task.TaskID)

	assigner := f.appData(t, &domain.User{UserID: 9})
	assertx.NoErr(t, assigner.RefreshAll(ctx))
	review := assigner.TasksToReview()
	assertx.Equal(t, 1, len(review))

	assertx.NoErr(t, assigner.ApproveTask(ctx, review[0].TaskCompletion.TaskCompletionID))
	assertx.Equal(t, 0, len(assigner.TasksToReview()))

	assertx.NoErr(t, student.RefreshAll(ctx))
	assertx.Equal(t, 1, len(student.TasksByStatus(domain.StatusCompleted)))
}

func TestCompleteTaskErrors(t *testing.T) {
	f := newFixture()
	a := f.appData(t, &domain.User{UserID: 2})
	ctx := context.Background()
	assertx.NoErr(t, a.RefreshAll(ctx))

	if err := a.CompleteTask(ctx, 404); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
	assertx.Equal(t, "Failed to complete task", a.Err())

	if err := a.CompleteTask(ctx, 5); !errors.Is(err, ErrNotEnrolled) {
		t.Fatalf("expected ErrNotEnrolled, got %v", err)
	}

	f.completions.createErr = errDown
	if err := a.CompleteTask(ctx, 7); !errors.Is(err, errDown) {
		t.Fatalf("expected api error, got %v", err)
	}
	assertx.Equal(t, "Failed to complete task", a.Err())

	if err := a.ApproveTask(ctx, 77); !errors.Is(err, resources.ErrNotFound) {
		t.Fatalf("expected resources.ErrNotFound, got %v", err)
	}
	assertx.Equal(t, "Failed to approve task", a.Err())
}
