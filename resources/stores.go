package resources

import (
	log "github.com/sirupsen/logrus"

	"studenthub/client"
	"studenthub/domain"
)

type (
	CategoryAPI   = client.ResourceAPI[domain.Category, domain.CategoryCreate, domain.CategoryUpdate]
	CourseAPI     = client.ResourceAPI[domain.Course, domain.CourseCreate, domain.CourseUpdate]
	EnrollmentAPI = client.ResourceAPI[domain.Enrollment, domain.EnrollmentCreate, domain.EnrollmentUpdate]
	TaskAPI       = client.ResourceAPI[domain.Task, domain.TaskCreate, domain.TaskUpdate]
	UserAPI       = client.ResourceAPI[domain.User, domain.UserCreate, domain.UserUpdate]
	CompletionAPI = client.ResourceAPI[domain.TaskCompletion, domain.TaskCompletionCreate, domain.TaskCompletionCreate]
)

// Categories holds the category list.
type Categories struct {
	*Collection[domain.Category, domain.CategoryCreate, domain.CategoryUpdate]
}

func NewCategories(api CategoryAPI, logger *log.Logger) *Categories {
	return &Categories{newCollection("categories", api, messagesFor("category", "categories"), logger)}
}

// Courses holds the course list.
type Courses struct {
	*Collection[domain.Course, domain.CourseCreate, domain.CourseUpdate]
}

func NewCourses(api CourseAPI, logger *log.Logger) *Courses {
	return &Courses{newCollection("courses", api, messagesFor("course", "courses"), logger)}
}

// ByCategory returns the courses filed under categoryID.
func (c *Courses) ByCategory(categoryID int) []domain.Course {
	return c.Filter(func(co domain.Course) bool { return co.CategoryID == categoryID })
}

// Tasks holds the task list.
type Tasks struct {
	*Collection[domain.Task, domain.TaskCreate, domain.TaskUpdate]
}

func NewTasks(api TaskAPI, logger *log.Logger) *Tasks {
	return &Tasks{newCollection("tasks", api, messagesFor("task", "tasks"), logger)}
}

// ByCourse returns the tasks belonging to courseID.
func (t *Tasks) ByCourse(courseID int) []domain.Task {
	return t.Filter(func(tk domain.Task) bool { return tk.CourseID == courseID })
}

// Enrollments holds the enrollment list. Creating an enrollment assigns a
// course to a student; deleting one removes the assignment.
type Enrollments struct {
	*Collection[domain.Enrollment, domain.EnrollmentCreate, domain.EnrollmentUpdate]
}

func NewEnrollments(api EnrollmentAPI, logger *log.Logger) *Enrollments {
	msgs := Messages{
		Fetch:  "Failed to load enrollments. Please try again.",
		Create: "Failed to assign course to student. Please try again.",
		Update: "Failed to update enrollment. Please try again.",
		Delete: "Failed to remove course assignment. Please try again.",
	}
	return &Enrollments{newCollection("enrollments", api, msgs, logger)}
}

func (e *Enrollments) ByStudent(studentID int) []domain.Enrollment {
	return e.Filter(func(en domain.Enrollment) bool { return en.StudentID == studentID })
}

func (e *Enrollments) ByCourse(courseID int) []domain.Enrollment {
	return e.Filter(func(en domain.Enrollment) bool { return en.CourseID == courseID })
}

// Find returns the enrollment of studentID in courseID.
func (e *Enrollments) Find(studentID, courseID int) (domain.Enrollment, bool) {
	found := e.Filter(func(en domain.Enrollment) bool {
		return en.StudentID == studentID && en.CourseID == courseID
	})
	if len(found) == 0 {
		return domain.Enrollment{}, false
	}
	return found[0], true
}

// Users holds every user the API returns; Students narrows it.
type Users struct {
	*Collection[domain.User, domain.UserCreate, domain.UserUpdate]
}

func NewUsers(api UserAPI, logger *log.Logger) *Users {
	msgs := messagesFor("user", "students")
	return &Users{newCollection("users", api, msgs, logger)}
}

// Students returns the users whose role is student.
func (u *Users) Students() []domain.User {
	return u.Filter(func(us domain.User) bool { return us.HasRole(domain.RoleStudent) })
}

// Set bundles every store built on the same API client.
type Set struct {
	Categories      *Categories
	Courses         *Courses
	Tasks           *Tasks
	Enrollments     *Enrollments
	Users           *Users
	TaskCompletions *TaskCompletions
}

// NewSet builds all stores from b.
func NewSet(b *client.Bundle, logger *log.Logger) *Set {
	return &Set{
		Categories:      NewCategories(b.Categories, logger),
		Courses:         NewCourses(b.Courses, logger),
		Tasks:           NewTasks(b.Tasks, logger),
		Enrollments:     NewEnrollments(b.Enrollments, logger),
		Users:           NewUsers(b.Users, logger),
		TaskCompletions: NewTaskCompletions(b.TaskCompletions, b.Enrollments, b.Users, logger),
	}
}
