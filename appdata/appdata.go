// Package appdata joins the resource stores into the views the CLI shows: a
// student's tasks grouped by status and the completions an assigner has to
// review.
package appdata

import (
	"context"
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"studenthub/domain"
	"studenthub/resources"
)

var (
	ErrNotAuthenticated = errors.New("not signed in")
	ErrTaskNotFound     = errors.New("task not found")
	ErrNotEnrolled      = errors.New("not enrolled in the task's course")
)

const (
	unknownAssigner = "Unknown"
	unknownStudent  = "Unknown Student"

	msgCompleteTask = "Failed to complete task"
	msgApproveTask  = "Failed to approve task"
)

// CurrentUser reports the signed-in user, or nil.
type CurrentUser interface {
	User() *domain.User
}

// TaskItem is one task of one of the user's enrollments.
type TaskItem struct {
	Task             domain.Task
	Course           domain.Course
	Status           domain.TaskStatus
	AssignerID       int
	AssignerName     string
	EnrollmentID     int
	TaskCompletionID int
}

// ReviewItem is a pending completion waiting for the current user's approval.
type ReviewItem struct {
	TaskCompletion domain.TaskCompletion
	Task           domain.Task
	Course         domain.Course
	StudentID      int
	StudentName    string
}

// Board groups the current user's tasks by status.
type Board struct {
	NotStarted []TaskItem
	Pending    []TaskItem
	Completed  []TaskItem
}

// Group returns the items of status s.
func (b Board) Group(s domain.TaskStatus) []TaskItem {
	switch s {
	case domain.StatusPending:
		return b.Pending
	case domain.StatusCompleted:
		return b.Completed
	default:
		return b.NotStarted
	}
}

// AppData recomputes every view from the stores' current lists on each call.
type AppData struct {
	Courses         *resources.Courses
	Tasks           *resources.Tasks
	Enrollments     *resources.Enrollments
	Users           *resources.Users
	TaskCompletions *resources.TaskCompletions

	user CurrentUser
	log  *log.Logger

	mu      sync.RWMutex
	loading bool
	err     string
}

// New builds an AppData over set for the user reported by user.
func New(set *resources.Set, user CurrentUser, logger *log.Logger) *AppData {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &AppData{
		Courses:         set.Courses,
		Tasks:           set.Tasks,
		Enrollments:     set.Enrollments,
		Users:           set.Users,
		TaskCompletions: set.TaskCompletions,
		user:            user,
		log:             logger,
	}
}

func (a *AppData) currentUser() *domain.User {
	if a.user == nil {
		return nil
	}
	return a.user.User()
}

func (a *AppData) setErr(msg string) {
	a.mu.Lock()
	a.err = msg
	a.mu.Unlock()
}

func (a *AppData) Loading() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.loading
}

// Err is the message of the last failed aggregate operation, or "".
func (a *AppData) Err() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.err
}

type fetcher struct {
	name  string
	fetch func(context.Context) error
}

// RefreshAll fetches every store in parallel. Task completions are only
// fetched for a signed-in user. The message of the first failing store, in
// declaration order, becomes Err.
func (a *AppData) RefreshAll(ctx context.Context) error {
	a.mu.Lock()
	a.loading = true
	a.err = ""
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.loading = false
		a.mu.Unlock()
	}()

	fetchers := []fetcher{
		{"courses", a.Courses.FetchAll},
		{"tasks", a.Tasks.FetchAll},
		{"enrollments", a.Enrollments.FetchAll},
		{"users", a.Users.FetchAll},
	}
	if a.currentUser() != nil {
		fetchers = append(fetchers, fetcher{"task completions", a.TaskCompletions.FetchAll})
	}

	errs := make([]error, len(fetchers))
	var wg sync.WaitGroup
	for i, f := range fetchers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := f.fetch(ctx); err != nil {
				errs[i] = fmt.Errorf("load %s: %w", f.name, err)
			}
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			a.setErr("Failed to load " + fetchers[i].name)
			break
		}
	}
	return errors.Join(errs...)
}

func (a *AppData) assignerName(id int) string {
	if u, ok := a.Users.GetByID(id); ok {
		return u.FullName()
	}
	return unknownAssigner
}

// tasks walks the current user's enrollments and derives a status for every
// task of each enrolled course. Courses missing from the store are skipped.
func (a *AppData) tasks() []TaskItem {
	u := a.currentUser()
	if u == nil {
		return nil
	}
	var out []TaskItem
	for _, en := range a.Enrollments.ByStudent(u.UserID) {
		course, ok := a.Courses.GetByID(en.CourseID)
		if !ok {
			continue
		}
		assigner := a.assignerName(en.AssignerID)
		for _, task := range a.Tasks.ByCourse(course.CourseID) {
			item := TaskItem{
				Task:         task,
				Course:       course,
				Status:       domain.StatusNotStarted,
				AssignerID:   en.AssignerID,
				AssignerName: assigner,
				EnrollmentID: en.EnrollmentID,
			}
			if c, ok := a.TaskCompletions.Match(en.EnrollmentID, task.TaskID); ok {
				item.Status = domain.StatusOf(&c)
				item.TaskCompletionID = c.TaskCompletionID
			}
			out = append(out, item)
		}
	}
	return out
}

// TasksByStatus returns the current user's tasks with the given status.
func (a *AppData) TasksByStatus(status domain.TaskStatus) []TaskItem {
	out := []TaskItem{}
	for _, it := range a.tasks() {
		if it.Status == status {
			out = append(out, it)
		}
	}
	return out
}

// Board returns all of the current user's tasks grouped by status.
func (a *AppData) Board() Board {
	b := Board{NotStarted: []TaskItem{}, Pending: []TaskItem{}, Completed: []TaskItem{}}
	for _, it := range a.tasks() {
		switch it.Status {
		case domain.StatusPending:
			b.Pending = append(b.Pending, it)
		case domain.StatusCompleted:
			b.Completed = append(b.Completed, it)
		default:
			b.NotStarted = append(b.NotStarted, it)
		}
	}
	return b
}

// TasksToReview lists pending completions on enrollments the current user
// assigned.
func (a *AppData) TasksToReview() []ReviewItem {
	out := []ReviewItem{}
	u := a.currentUser()
	if u == nil {
		return out
	}
	for _, c := range a.TaskCompletions.Items() {
		if c.IsActive {
			continue
		}
		en, ok := a.Enrollments.GetByID(c.EnrollmentID)
		if !ok || en.AssignerID != u.UserID {
			continue
		}
		task, ok := a.Tasks.GetByID(c.TaskID)
		if !ok {
			continue
		}
		course, ok := a.Courses.GetByID(task.CourseID)
		if !ok {
			continue
		}
		name := unknownStudent
		if s, ok := a.Users.GetByID(en.StudentID); ok {
			name = s.FullName()
		}
		out = append(out, ReviewItem{
			TaskCompletion: c,
			Task:           task,
			Course:         course,
			StudentID:      en.StudentID,
			StudentName:    name,
		})
	}
	return out
}

// CompleteTask asks for approval of taskID on the current user's enrollment
// in the task's course.
func (a *AppData) CompleteTask(ctx context.Context, taskID int) error {
	a.setErr("")
	u := a.currentUser()
	if u == nil {
		a.setErr(msgCompleteTask)
		return ErrNotAuthenticated
	}
	task, ok := a.Tasks.GetByID(taskID)
	if !ok {
		a.setErr(msgCompleteTask)
		return fmt.Errorf("task %d: %w", taskID, ErrTaskNotFound)
	}
	en, ok := a.Enrollments.Find(u.UserID, task.CourseID)
	if !ok {
		a.setErr(msgCompleteTask)
		return fmt.Errorf("course %d: %w", task.CourseID, ErrNotEnrolled)
	}
	if _, err := a.TaskCompletions.RequestApproval(ctx, en.EnrollmentID, task.TaskID); err != nil {
		a.setErr(msgCompleteTask)
		a.log.WithFields(log.Fields{"task_id": taskID, "enrollment_id": en.EnrollmentID}).WithError(err).Error(msgCompleteTask)
		return fmt.Errorf("complete task %d: %w", taskID, err)
	}
	return nil
}

// ApproveTask approves a pending completion.
func (a *AppData) ApproveTask(ctx context.Context, completionID int) error {
	a.setErr("")
	if err := a.TaskCompletions.Approve(ctx, completionID); err != nil {
		a.setErr(msgApproveTask)
		a.log.WithField("task_completion_id", completionID).WithError(err).Error(msgApproveTask)
		return fmt.Errorf("approve completion %d: %w", completionID, err)
	}
	return nil
}
