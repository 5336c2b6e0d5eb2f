package devapi

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"studenthub/domain"
)

// NotFoundError is returned when a referenced row does not exist.
type NotFoundError struct {
	What string
}

func (e *NotFoundError) Error() string {
	return e.What + " not found"
}

func notFound(what string) error { return &NotFoundError{What: what} }

// ErrConflict is returned when a unique field is already taken.
var ErrConflict = errors.New("already registered")

// table is an auto-increment, id-ordered list of rows.
type table[T domain.Entity] struct {
	rows []T
	next int
}

func (t *table[T]) insert(build func(id int) T) T {
	t.next++
	row := build(t.next)
	t.rows = append(t.rows, row)
	return row
}

func (t *table[T]) get(id int) (T, bool) {
	for _, r := range t.rows {
		if r.ID() == id {
			return r, true
		}
	}
	var zero T
	return zero, false
}

func (t *table[T]) replace(row T) {
	for i := range t.rows {
		if t.rows[i].ID() == row.ID() {
			t.rows[i] = row
			return
		}
	}
}

func (t *table[T]) remove(id int) bool {
	n := len(t.rows)
	t.rows = slices.DeleteFunc(t.rows, func(r T) bool { return r.ID() == id })
	return len(t.rows) != n
}

func (t *table[T]) all() []T {
	return append([]T{}, t.rows...)
}

// Store is the in-memory database behind the API.
type Store struct {
	mu          sync.RWMutex
	roles       table[domain.Role]
	users       table[domain.User]
	passwords   map[int][]byte
	categories  table[domain.Category]
	courses     table[domain.Course]
	tasks       table[domain.Task]
	enrollments table[domain.Enrollment]
	completions table[domain.TaskCompletion]

	now  func() time.Time
	cost int
}

func NewStore() *Store {
	return &Store{passwords: map[int][]byte{}, now: time.Now, cost: bcrypt.DefaultCost}
}

// SetHashCost changes the bcrypt cost used for new passwords.
func (s *Store) SetHashCost(cost int) {
	s.cost = cost
}

// Roles

func (s *Store) Roles() []domain.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roles.all()
}

func (s *Store) Role(id int) (domain.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.roles.get(id); ok {
		return r, nil
	}
	return domain.Role{}, notFound("Role")
}

func (s *Store) CreateRole(in domain.RoleCreate) (domain.Role, error) {
	if err := in.Validate(); err != nil {
		return domain.Role{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.roles.rows {
		if strings.EqualFold(r.Name, in.Name) {
			return domain.Role{}, fmt.Errorf("role %q: %w", in.Name, ErrConflict)
		}
	}
	return s.roles.insert(func(id int) domain.Role {
		return domain.Role{RoleID: id, Name: in.Name, Description: in.Description}
	}), nil
}

func (s *Store) UpdateRole(id int, in domain.RoleUpdate) (domain.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.roles.get(id)
	if !ok {
		return domain.Role{}, notFound("Role")
	}
	if in.Name != nil {
		r.Name = *in.Name
	}
	if in.Description != nil {
		r.Description = in.Description
	}
	s.roles.replace(r)
	return r, nil
}

func (s *Store) DeleteRole(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.roles.remove(id) {
		return notFound("Role")
	}
	return nil
}

// Users

// withRole resolves the user's role from the roles table so renames show up.
func (s *Store) withRole(u domain.User) domain.User {
	if u.Role != nil {
		if r, ok := s.roles.get(u.Role.RoleID); ok {
			u.Role = &r
		}
	}
	return u
}

func (s *Store) Users() []domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.users.all()
	for i := range out {
		out[i] = s.withRole(out[i])
	}
	return out
}

func (s *Store) User(id int) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.users.get(id); ok {
		return s.withRole(u), nil
	}
	return domain.User{}, notFound("User")
}

func (s *Store) CreateUser(in domain.UserCreate) (domain.User, error) {
	if err := in.Validate(); err != nil {
		return domain.User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return domain.User{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	role, ok := s.roles.get(in.RoleID)
	if !ok {
		return domain.User{}, notFound("Role")
	}
	for _, u := range s.users.rows {
		if strings.EqualFold(u.Username, in.Username) {
			return domain.User{}, fmt.Errorf("username %q: %w", in.Username, ErrConflict)
		}
	}
	u := s.users.insert(func(id int) domain.User {
		return domain.User{
			UserID:    id,
			Username:  in.Username,
			Email:     in.Email,
			FirstName: in.FirstName,
			LastName:  in.LastName,
			Role:      &role,
			IsActive:  in.IsActive,
		}
	})
	s.passwords[u.UserID] = hash
	return u, nil
}

func (s *Store) UpdateUser(id int, in domain.UserUpdate) (domain.User, error) {
	if err := in.Validate(); err != nil {
		return domain.User{}, err
	}
	var hash []byte
	if in.Password != nil {
		h, err := bcrypt.GenerateFromPassword([]byte(*in.Password), s.cost)
		if err != nil {
			return domain.User{}, err
		}
		hash = h
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users.get(id)
	if !ok {
		return domain.User{}, notFound("User")
	}
	if in.Username != nil {
		u.Username = *in.Username
	}
	if in.FirstName != nil {
		u.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		u.LastName = *in.LastName
	}
	if in.Email != nil {
		u.Email = *in.Email
	}
	if in.IsActive != nil {
		u.IsActive = *in.IsActive
	}
	if in.RoleID != nil {
		role, ok := s.roles.get(*in.RoleID)
		if !ok {
			return domain.User{}, notFound("Role")
		}
		u.Role = &role
	}
	if hash != nil {
		s.passwords[id] = hash
	}
	s.users.replace(u)
	return s.withRole(u), nil
}

func (s *Store) DeleteUser(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.users.remove(id) {
		return notFound("User")
	}
	delete(s.passwords, id)
	return nil
}

// Authenticate checks a username and password pair.
func (s *Store) Authenticate(username, password string) (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users.rows {
		if u.Username != username || !u.IsActive {
			continue
		}
		if bcrypt.CompareHashAndPassword(s.passwords[u.UserID], []byte(password)) != nil {
			return domain.User{}, false
		}
		return s.withRole(u), true
	}
	return domain.User{}, false
}

// Categories

func (s *Store) Categories() []domain.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.categories.all()
}

func (s *Store) Category(id int) (domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.categories.get(id); ok {
		return c, nil
	}
	return domain.Category{}, notFound("Category")
}

func (s *Store) CreateCategory(in domain.CategoryCreate) (domain.Category, error) {
	if err := in.Validate(); err != nil {
		return domain.Category{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.categories.insert(func(id int) domain.Category {
		return domain.Category{CategoryID: id, Name: in.Name, Description: in.Description, IsActive: in.IsActive}
	}), nil
}

func (s *Store) UpdateCategory(id int, in domain.CategoryUpdate) (domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories.get(id)
	if !ok {
		return domain.Category{}, notFound("Category")
	}
	if in.Name != nil {
		c.Name = *in.Name
	}
	if in.Description != nil {
		c.Description = in.Description
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	s.categories.replace(c)
	return c, nil
}

func (s *Store) DeleteCategory(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.categories.remove(id) {
		return notFound("Category")
	}
	return nil
}

// Courses

func (s *Store) Courses() []domain.Course {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.courses.all()
}

func (s *Store) Course(id int) (domain.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.courses.get(id); ok {
		return c, nil
	}
	return domain.Course{}, notFound("Course")
}

func (s *Store) CreateCourse(in domain.CourseCreate) (domain.Course, error) {
	if err := in.Validate(); err != nil {
		return domain.Course{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories.get(in.CategoryID); !ok {
		return domain.Course{}, notFound("Category")
	}
	return s.courses.insert(func(id int) domain.Course {
		return domain.Course{
			CourseID:       id,
			Title:          in.Title,
			Description:    in.Description,
			CategoryID:     in.CategoryID,
			TeacherID:      in.TeacherID,
			DeadlineInDays: in.DeadlineInDays,
			IsActive:       in.IsActive,
		}
	}), nil
}

func (s *Store) UpdateCourse(id int, in domain.CourseUpdate) (domain.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.courses.get(id)
	if !ok {
		return domain.Course{}, notFound("Course")
	}
	if in.Title != nil {
		c.Title = *in.Title
	}
	if in.Description != nil {
		c.Description = in.Description
	}
	if in.CategoryID != nil {
		if _, ok := s.categories.get(*in.CategoryID); !ok {
			return domain.Course{}, notFound("Category")
		}
		c.CategoryID = *in.CategoryID
	}
	if in.TeacherID != nil {
		c.TeacherID = in.TeacherID
	}
	if in.DeadlineInDays != nil {
		c.DeadlineInDays = in.DeadlineInDays
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	s.courses.replace(c)
	return c, nil
}

func (s *Store) DeleteCourse(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.courses.remove(id) {
		return notFound("Course")
	}
	return nil
}

// Tasks

func (s *Store) Tasks() []domain.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tasks.all()
}

func (s *Store) Task(id int) (domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.tasks.get(id); ok {
		return t, nil
	}
	return domain.Task{}, notFound("Task")
}

func (s *Store) CreateTask(in domain.TaskCreate) (domain.Task, error) {
	if err := in.Validate(); err != nil {
		return domain.Task{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.courses.get(in.CourseID); !ok {
		return domain.Task{}, notFound("Course")
	}
	return s.tasks.insert(func(id int) domain.Task {
		return domain.Task{TaskID: id, Title: in.Title, Description: in.Description, CourseID: in.CourseID, IsActive: in.IsActive}
	}), nil
}

func (s *Store) UpdateTask(id int, in domain.TaskUpdate) (domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks.get(id)
	if !ok {
		return domain.Task{}, notFound("Task")
	}
	if in.Title != nil {
		t.Title = *in.Title
	}
	if in.Description != nil {
		t.Description = in.Description
	}
	if in.CourseID != nil {
		if _, ok := s.courses.get(*in.CourseID); !ok {
			return domain.Task{}, notFound("Course")
		}
		t.CourseID = *in.CourseID
	}
	if in.IsActive != nil {
		t.IsActive = *in.IsActive
	}
	s.tasks.replace(t)
	return t, nil
}

func (s *Store) DeleteTask(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.tasks.remove(id) {
		return notFound("Task")
	}
	return nil
}

// Enrollments

func (s *Store) Enrollments() []domain.Enrollment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enrollments.all()
}

func (s *Store) Enrollment(id int) (domain.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.enrollments.get(id); ok {
		return e, nil
	}
	return domain.Enrollment{}, notFound("Enrollment")
}

// CreateEnrollment defaults enrolled_at to today and, when the course has a
// deadline_in_days, derives the deadline from it.
func (s *Store) CreateEnrollment(in domain.EnrollmentCreate) (domain.Enrollment, error) {
	if err := in.Validate(); err != nil {
		return domain.Enrollment{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users.get(in.StudentID); !ok {
		return domain.Enrollment{}, notFound("Student")
	}
	if _, ok := s.users.get(in.AssignerID); !ok {
		return domain.Enrollment{}, notFound("Assigner")
	}
	course, ok := s.courses.get(in.CourseID)
	if !ok {
		return domain.Enrollment{}, notFound("Course")
	}
	enrolled := in.EnrolledAt
	if enrolled == nil {
		d := domain.NewDate(s.now())
		enrolled = &d
	}
	deadline := in.Deadline
	if deadline == nil && course.DeadlineInDays != nil {
		d := domain.NewDate(enrolled.AddDate(0, 0, *course.DeadlineInDays))
		deadline = &d
	}
	return s.enrollments.insert(func(id int) domain.Enrollment {
		return domain.Enrollment{
			EnrollmentID: id,
			StudentID:    in.StudentID,
			CourseID:     in.CourseID,
			AssignerID:   in.AssignerID,
			EnrolledAt:   enrolled,
			Deadline:     deadline,
			IsActive:     in.IsActive,
		}
	}), nil
}

func (s *Store) UpdateEnrollment(id int, in domain.EnrollmentUpdate) (domain.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.enrollments.get(id)
	if !ok {
		return domain.Enrollment{}, notFound("Enrollment")
	}
	if in.StudentID != nil {
		e.StudentID = *in.StudentID
	}
	if in.CourseID != nil {
		e.CourseID = *in.CourseID
	}
	if in.AssignerID != nil {
		e.AssignerID = *in.AssignerID
	}
	if in.CompletedAt != nil {
		e.CompletedAt = in.CompletedAt
	}
	if in.Deadline != nil {
		e.Deadline = in.Deadline
	}
	if in.IsActive != nil {
		e.IsActive = *in.IsActive
	}
	s.enrollments.replace(e)
	return e, nil
}

func (s *Store) DeleteEnrollment(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enrollments.remove(id) {
		return notFound("Enrollment")
	}
	return nil
}

// Task completions

func (s *Store) TaskCompletions() []domain.TaskCompletion {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.completions.all()
}

func (s *Store) TaskCompletion(id int) (domain.TaskCompletion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.completions.get(id); ok {
		return c, nil
	}
	return domain.TaskCompletion{}, notFound("Task completion")
}

func (s *Store) checkCompletionRefs(in domain.TaskCompletionCreate) error {
	if _, ok := s.enrollments.get(in.EnrollmentID); !ok {
		return notFound("Enrollment")
	}
	if _, ok := s.tasks.get(in.TaskID); !ok {
		return notFound("Task")
	}
	return nil
}

func (s *Store) CreateTaskCompletion(in domain.TaskCompletionCreate) (domain.TaskCompletion, error) {
	if err := in.Validate(); err != nil {
		return domain.TaskCompletion{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkCompletionRefs(in); err != nil {
		return domain.TaskCompletion{}, err
	}
	return s.completions.insert(func(id int) domain.TaskCompletion {
		return domain.TaskCompletion{
			TaskCompletionID: id,
			EnrollmentID:     in.EnrollmentID,
			TaskID:           in.TaskID,
			IsActive:         in.IsActive,
			CompletedAt:      in.CompletedAt,
		}
	}), nil
}

// UpdateTaskCompletion replaces every field of the record.
func (s *Store) UpdateTaskCompletion(id int, in domain.TaskCompletionCreate) (domain.TaskCompletion, error) {
	if err := in.Validate(); err != nil {
		return domain.TaskCompletion{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.completions.get(id); !ok {
		return domain.TaskCompletion{}, notFound("Task completion")
	}
	if err := s.checkCompletionRefs(in); err != nil {
		return domain.TaskCompletion{}, err
	}
	c := domain.TaskCompletion{
		TaskCompletionID: id,
		EnrollmentID:     in.EnrollmentID,
		TaskID:           in.TaskID,
		IsActive:         in.IsActive,
		CompletedAt:      in.CompletedAt,
	}
	s.completions.replace(c)
	return c, nil
}

func (s *Store) DeleteTaskCompletion(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.completions.remove(id) {
		return notFound("Task completion")
	}
	return nil
}
