package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Validator is implemented by payloads that can be checked before they are
// sent to the API.
type Validator interface {
	Validate() error
}

// ValidationError reports a payload field that failed a required-field check.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func checkLen(field, value string, min, max int) error {
	n := utf8.RuneCountInString(strings.TrimSpace(value))
	if n < min {
		if min == 1 {
			return &ValidationError{Field: field, Reason: "is required"}
		}
		return &ValidationError{Field: field, Reason: fmt.Sprintf("must be at least %d characters", min)}
	}
	if max > 0 && n > max {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("must be at most %d characters", max)}
	}
	return nil
}

func checkID(field string, id int) error {
	if id <= 0 {
		return &ValidationError{Field: field, Reason: "is required"}
	}
	return nil
}

func (c CategoryCreate) Validate() error {
	return checkLen("name", c.Name, 3, 50)
}

func (c CourseCreate) Validate() error {
	if err := checkLen("title", c.Title, 3, 50); err != nil {
		return err
	}
	if c.DeadlineInDays != nil && *c.DeadlineInDays < 0 {
		return &ValidationError{Field: "deadline_in_days", Reason: "must not be negative"}
	}
	return checkID("category_id", c.CategoryID)
}

func (t TaskCreate) Validate() error {
	if err := checkLen("title", t.Title, 1, 50); err != nil {
		return err
	}
	return checkID("course_id", t.CourseID)
}

func (e EnrollmentCreate) Validate() error {
	if err := checkID("student_id", e.StudentID); err != nil {
		return err
	}
	if err := checkID("course_id", e.CourseID); err != nil {
		return err
	}
	return checkID("assigner_id", e.AssignerID)
}

func (tc TaskCompletionCreate) Validate() error {
	if err := checkID("enrollment_id", tc.EnrollmentID); err != nil {
		return err
	}
	return checkID("task_id", tc.TaskID)
}

func (u UserCreate) Validate() error {
	for _, f := range []struct {
		name, value string
		min, max    int
	}{
		{"username", u.Username, 3, 50},
		{"first_name", u.FirstName, 1, 50},
		{"last_name", u.LastName, 1, 50},
		{"email", u.Email, 5, 50},
		{"password", u.Password, 6, 50},
	} {
		if err := checkLen(f.name, f.value, f.min, f.max); err != nil {
			return err
		}
	}
	if !strings.Contains(u.Email, "@") {
		return &ValidationError{Field: "email", Reason: "must be an email address"}
	}
	return checkID("role_id", u.RoleID)
}

func (u UserUpdate) Validate() error {
	if u.Password != nil {
		return checkLen("password", *u.Password, 6, 50)
	}
	return nil
}

func (r RoleCreate) Validate() error {
	return checkLen("name", r.Name, 1, 50)
}
