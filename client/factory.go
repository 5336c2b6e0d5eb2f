package client

import (
	"net/http"
	"sync"

	log "github.com/sirupsen/logrus"

	"studenthub/domain"
)

// Collection endpoints.
const (
	CategoriesPath      = "/categories"
	CoursesPath         = "/courses"
	EnrollmentsPath     = "/enrollments"
	RolesPath           = "/roles"
	TaskCompletionsPath = "/task-completions"
	TasksPath           = "/tasks"
	UsersPath           = "/users"
)

// Bundle groups one client per resource, all sharing the same credentials.
type Bundle struct {
	Token string

	Auth            *AuthAPI
	Categories      ResourceAPI[domain.Category, domain.CategoryCreate, domain.CategoryUpdate]
	Courses         ResourceAPI[domain.Course, domain.CourseCreate, domain.CourseUpdate]
	Enrollments     ResourceAPI[domain.Enrollment, domain.EnrollmentCreate, domain.EnrollmentUpdate]
	Roles           ResourceAPI[domain.Role, domain.RoleCreate, domain.RoleUpdate]
	TaskCompletions ResourceAPI[domain.TaskCompletion, domain.TaskCompletionCreate, domain.TaskCompletionCreate]
	Tasks           ResourceAPI[domain.Task, domain.TaskCreate, domain.TaskUpdate]
	Users           ResourceAPI[domain.User, domain.UserCreate, domain.UserUpdate]
}

// NewBundle builds the per-resource clients for token; empty means anonymous.
func NewBundle(baseURL, token string, httpClient *http.Client, logger *log.Logger) *Bundle {
	c := New(baseURL, token, httpClient, logger)
	return &Bundle{
		Token:           token,
		Auth:            &AuthAPI{c: c},
		Categories:      NewResource[domain.Category, domain.CategoryCreate, domain.CategoryUpdate](c, CategoriesPath),
		Courses:         NewResource[domain.Course, domain.CourseCreate, domain.CourseUpdate](c, CoursesPath),
		Enrollments:     NewResource[domain.Enrollment, domain.EnrollmentCreate, domain.EnrollmentUpdate](c, EnrollmentsPath),
		Roles:           NewResource[domain.Role, domain.RoleCreate, domain.RoleUpdate](c, RolesPath),
		TaskCompletions: NewResource[domain.TaskCompletion, domain.TaskCompletionCreate, domain.TaskCompletionCreate](c, TaskCompletionsPath),
		Tasks:           NewResource[domain.Task, domain.TaskCreate, domain.TaskUpdate](c, TasksPath),
		Users:           NewResource[domain.User, domain.UserCreate, domain.UserUpdate](c, UsersPath),
	}
}

// Factory hands out bundles and only rebuilds one when the token changes.
type Factory struct {
	baseURL string
	http    *http.Client
	log     *log.Logger

	mu      sync.Mutex
	current *Bundle
}

// NewFactory creates a Factory for the API at baseURL.
func NewFactory(baseURL string, httpClient *http.Client, logger *log.Logger) *Factory {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Factory{baseURL: baseURL, http: httpClient, log: logger}
}

// For returns the bundle for token, reusing the previous one if the token is
// unchanged.
func (f *Factory) For(token string) *Bundle {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current != nil && f.current.Token == token {
		return f.current
	}
	f.current = NewBundle(f.baseURL, token, f.http, f.log)
	return f.current
}
