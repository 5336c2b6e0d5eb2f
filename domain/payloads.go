package domain

// CategoryCreate is the body of POST /categories.
type CategoryCreate struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	IsActive    bool    `json:"is_active"`
}

// CategoryUpdate is the body of PUT /categories/{id}.
type CategoryUpdate struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

type CourseCreate struct {
	Title          string  `json:"title"`
	Description    *string `json:"description,omitempty"`
	CategoryID     int     `json:"category_id"`
	TeacherID      *int    `json:"teacher_id,omitempty"`
	DeadlineInDays *int    `json:"deadline_in_days,omitempty"`
	IsActive       bool    `json:"is_active"`
}

type CourseUpdate struct {
	Title          *string `json:"title,omitempty"`
	Description    *string `json:"description,omitempty"`
	CategoryID     *int    `json:"category_id,omitempty"`
	TeacherID      *int    `json:"teacher_id,omitempty"`
	DeadlineInDays *int    `json:"deadline_in_days,omitempty"`
	IsActive       *bool   `json:"is_active,omitempty"`
}

type TaskCreate struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	CourseID    int     `json:"course_id"`
	IsActive    bool    `json:"is_active"`
}

type TaskUpdate struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	CourseID    *int    `json:"course_id,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

// EnrollmentCreate assigns a course to a student.
type EnrollmentCreate struct {
	StudentID  int   `json:"student_id"`
	CourseID   int   `json:"course_id"`
	AssignerID int   `json:"assigner_id"`
	EnrolledAt *Date `json:"enrolled_at,omitempty"`
	Deadline   *Date `json:"deadline,omitempty"`
	IsActive   bool  `json:"is_active"`
}

type EnrollmentUpdate struct {
	StudentID   *int       `json:"student_id,omitempty"`
	CourseID    *int       `json:"course_id,omitempty"`
	AssignerID  *int       `json:"assigner_id,omitempty"`
	CompletedAt *Timestamp `json:"completed_at,omitempty"`
	Deadline    *Date      `json:"deadline,omitempty"`
	IsActive    *bool      `json:"is_active,omitempty"`
}

// TaskCompletionCreate is used for both POST and PUT of task completions;
// the API replaces the whole record on update.
type TaskCompletionCreate struct {
	EnrollmentID int        `json:"enrollment_id"`
	TaskID       int        `json:"task_id"`
	IsActive     bool       `json:"is_active"`
	CompletedAt  *Timestamp `json:"completed_at"`
}

type UserCreate struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	RoleID    int    `json:"role_id"`
	IsActive  bool   `json:"is_active"`
}

type UserUpdate struct {
	Username  *string `json:"username,omitempty"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Email     *string `json:"email,omitempty"`
	Password  *string `json:"password,omitempty"`
	RoleID    *int    `json:"role_id,omitempty"`
	IsActive  *bool   `json:"is_active,omitempty"`
}

type RoleCreate struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

type RoleUpdate struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}
