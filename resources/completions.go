package resources

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"studenthub/domain"
)

const (
	detailWorkers      = 8
	unknownStudentName = "Unknown Student"
)

// DetailedCompletion is a completion joined with its enrollment's student and
// assigner.
type DetailedCompletion struct {
	domain.TaskCompletion
	StudentID   int
	AssignerID  int
	StudentName string
}

// TaskCompletions holds the completion list and the detailed view built by
// FetchDetailed.
type TaskCompletions struct {
	*Collection[domain.TaskCompletion, domain.TaskCompletionCreate, domain.TaskCompletionCreate]

	enrollments EnrollmentAPI
	users       UserAPI
	now         func() time.Time

	detailMu sync.RWMutex
	detailed []DetailedCompletion
}

func NewTaskCompletions(api CompletionAPI, enrollments EnrollmentAPI, users UserAPI, logger *log.Logger) *TaskCompletions {
	msgs := messagesFor("task completion", "task completions")
	return &TaskCompletions{
		Collection:  newCollection("task_completions", api, msgs, logger),
		enrollments: enrollments,
		users:       users,
		now:         time.Now,
	}
}

// ByEnrollment returns the completions recorded against enrollmentID.
func (tc *TaskCompletions) ByEnrollment(enrollmentID int) []domain.TaskCompletion {
	return tc.Filter(func(c domain.TaskCompletion) bool { return c.EnrollmentID == enrollmentID })
}

// Match returns the completion for taskID within enrollmentID.
func (tc *TaskCompletions) Match(enrollmentID, taskID int) (domain.TaskCompletion, bool) {
	found := tc.Filter(func(c domain.TaskCompletion) bool {
		return c.EnrollmentID == enrollmentID && c.TaskID == taskID
	})
	if len(found) == 0 {
		return domain.TaskCompletion{}, false
	}
	return found[0], true
}

// RequestApproval records a pending completion of taskID and refetches the list.
func (tc *TaskCompletions) RequestApproval(ctx context.Context, enrollmentID, taskID int) (domain.TaskCompletion, error) {
	created, err := tc.Create(ctx, domain.TaskCompletionCreate{
		EnrollmentID: enrollmentID,
		TaskID:       taskID,
		IsActive:     false,
	})
	if err != nil {
		return domain.TaskCompletion{}, err
	}
	if err := tc.FetchAll(ctx); err != nil {
		return created, err
	}
	return created, nil
}

// Approve marks a pending completion as approved now and refetches the list.
func (tc *TaskCompletions) Approve(ctx context.Context, completionID int) error {
	current, ok := tc.GetByID(completionID)
	if !ok {
		return tc.fail("update", tc.msgs.Update, fmt.Errorf("task completion %d: %w", completionID, ErrNotFound))
	}
	now := domain.NewTimestamp(tc.now())
	_, err := tc.Update(ctx, completionID, domain.TaskCompletionCreate{
		EnrollmentID: current.EnrollmentID,
		TaskID:       current.TaskID,
		IsActive:     true,
		CompletedAt:  &now,
	})
	if err != nil {
		return err
	}
	return tc.FetchAll(ctx)
}

type detailJob struct {
	idx        int
	completion domain.TaskCompletion
}

type detailResult struct {
	detail DetailedCompletion
	ok     bool
}

// FetchDetailed refreshes the list and resolves every completion's enrollment
// and student. Only completions where userID is the student or the assigner
// are kept; userID 0 keeps all of them.
func (tc *TaskCompletions) FetchDetailed(ctx context.Context, userID int) ([]DetailedCompletion, error) {
	if err := tc.FetchAll(ctx); err != nil {
		return nil, err
	}
	items := tc.Items()
	results := make([]detailResult, len(items))

	jobCh := make(chan detailJob)
	var wg sync.WaitGroup
	workers := min(detailWorkers, len(items))
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobCh {
				results[j.idx] = tc.resolve(ctx, j.completion)
			}
		}()
	}
	for i, c := range items {
		jobCh <- detailJob{idx: i, completion: c}
	}
	close(jobCh)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := []DetailedCompletion{}
	for _, r := range results {
		if !r.ok {
			continue
		}
		if userID != 0 && r.detail.StudentID != userID && r.detail.AssignerID != userID {
			continue
		}
		out = append(out, r.detail)
	}

	tc.detailMu.Lock()
	tc.detailed = out
	tc.detailMu.Unlock()
	return out, nil
}

func (tc *TaskCompletions) resolve(ctx context.Context, c domain.TaskCompletion) detailResult {
	en, err := tc.enrollments.Get(ctx, c.EnrollmentID)
	if err != nil {
		tc.log.WithFields(log.Fields{
			"task_completion_id": c.TaskCompletionID,
			"enrollment_id":      c.EnrollmentID,
		}).WithError(err).Warn("skipping completion, enrollment lookup failed")
		return detailResult{}
	}
	name := unknownStudentName
	if u, err := tc.users.Get(ctx, en.StudentID); err == nil {
		name = u.FullName()
	} else {
		tc.log.WithField("student_id", en.StudentID).WithError(err).Debug("student lookup failed")
	}
	return detailResult{ok: true, detail: DetailedCompletion{
		TaskCompletion: c,
		StudentID:      en.StudentID,
		AssignerID:     en.AssignerID,
		StudentName:    name,
	}}
}

// Detailed returns the view built by the last FetchDetailed.
func (tc *TaskCompletions) Detailed() []DetailedCompletion {
	tc.detailMu.RLock()
	defer tc.detailMu.RUnlock()
	out := make([]DetailedCompletion, len(tc.detailed))
	copy(out, tc.detailed)
	return out
}

// PendingByAssigner lists detailed completions awaiting approval by userID.
func (tc *TaskCompletions) PendingByAssigner(userID int) []DetailedCompletion {
	return tc.pending(func(d DetailedCompletion) bool { return d.AssignerID == userID })
}

// PendingByStudent lists userID's own completions still awaiting approval.
func (tc *TaskCompletions) PendingByStudent(userID int) []DetailedCompletion {
	return tc.pending(func(d DetailedCompletion) bool { return d.StudentID == userID })
}

func (tc *TaskCompletions) pending(keep func(DetailedCompletion) bool) []DetailedCompletion {
	out := []DetailedCompletion{}
	for _, d := range tc.Detailed() {
		if !d.IsActive && keep(d) {
			out = append(out, d)
		}
	}
	return out
}
