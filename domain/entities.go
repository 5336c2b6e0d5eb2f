package domain

// Entity is implemented by every record the API returns with a numeric key.
type Entity interface {
	ID() int
}

// Role describes a user's role in the platform.
type Role struct {
	RoleID      int     `json:"role_id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

func (r Role) ID() int { return r.RoleID }

// RoleStudent is the role name given to learners.
const RoleStudent = "student"

// User is a platform account.
type User struct {
	UserID    int    `json:"user_id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      *Role  `json:"role,omitempty"`
	IsActive  bool   `json:"is_active"`
}

func (u User) ID() int { return u.UserID }

// FullName joins first and last name.
func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// HasRole reports whether the user's role carries the given name.
func (u User) HasRole(name string) bool {
	return u.Role != nil && u.Role.Name == name
}

// Category groups courses.
type Category struct {
	CategoryID  int     `json:"category_id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	IsActive    bool    `json:"is_active"`
}

func (c Category) ID() int { return c.CategoryID }

// Course is a unit of study made of tasks.
type Course struct {
	CourseID       int     `json:"course_id"`
	Title          string  `json:"title"`
	Description    *string `json:"description,omitempty"`
	CategoryID     int     `json:"category_id"`
	TeacherID      *int    `json:"teacher_id,omitempty"`
	DeadlineInDays *int    `json:"deadline_in_days,omitempty"`
	IsActive       bool    `json:"is_active"`
}

func (c Course) ID() int { return c.CourseID }

// Task belongs to a course.
type Task struct {
	TaskID      int     `json:"task_id"`
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	CourseID    int     `json:"course_id"`
	IsActive    bool    `json:"is_active"`
}

func (t Task) ID() int { return t.TaskID }

// Enrollment links a student to a course and records who assigned it.
type Enrollment struct {
	EnrollmentID int        `json:"enrollment_id"`
	StudentID    int        `json:"student_id"`
	CourseID     int        `json:"course_id"`
	AssignerID   int        `json:"assigner_id"`
	EnrolledAt   *Date      `json:"enrolled_at,omitempty"`
	Deadline     *Date      `json:"deadline,omitempty"`
	CompletedAt  *Timestamp `json:"completed_at,omitempty"`
	IsActive     bool       `json:"is_active"`
}

func (e Enrollment) ID() int { return e.EnrollmentID }

// TaskCompletion is a student's claim that a task is done. IsActive doubles as
// the approval flag: false while pending, true once the assigner approved it.
type TaskCompletion struct {
	TaskCompletionID int        `json:"task_completion_id"`
	EnrollmentID     int        `json:"enrollment_id"`
	TaskID           int        `json:"task_id"`
	IsActive         bool       `json:"is_active"`
	CompletedAt      *Timestamp `json:"completed_at,omitempty"`
}

func (tc TaskCompletion) ID() int { return tc.TaskCompletionID }

// Token is returned by the login endpoint.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
