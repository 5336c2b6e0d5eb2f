// Package devapi serves the StudentHub REST API from memory for local
// development and tests.
package devapi

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"

	"studenthub/domain"
)

const (
	maxBodySize = 1 << 20
	ctxUserKey  = "user"
)

type detail struct {
	Detail any `json:"detail"`
}

// sonicSerializer makes echo encode responses with sonic.
type sonicSerializer struct{}

func (sonicSerializer) Serialize(c echo.Context, i any, indent string) error {
	enc := sonic.ConfigStd.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

func (sonicSerializer) Deserialize(c echo.Context, i any) error {
	return decodeBody(c, i)
}

func decodeBody(c echo.Context, v any) error {
	dec := sonic.ConfigStd.NewDecoder(io.LimitReader(c.Request().Body, maxBodySize))
	if err := dec.Decode(v); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "invalid body")
	}
	return nil
}

// New builds the echo server with every route registered.
func New(store *Store, auth *Auth, logger *log.Logger) *echo.Echo {
	if logger == nil {
		logger = log.StandardLogger()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = sonicSerializer{}
	e.HTTPErrorHandler = errorHandler(logger)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(requestLogger(logger))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	Register(e, store, auth, logger)
	return e
}

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, store *Store, auth *Auth, logger *log.Logger) {
	e.GET("/healthz", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.POST("/auth/token", login(store, auth, logger))

	g := e.Group("", requireUser(store, auth))
	g.GET("/auth/users/me", func(c echo.Context) error {
		return c.JSON(http.StatusOK, c.Get(ctxUserKey))
	})

	mount(g, "/roles", resource[domain.Role, domain.RoleCreate, domain.RoleUpdate]{
		list: store.Roles, get: store.Role, create: store.CreateRole, update: store.UpdateRole, delete: store.DeleteRole,
	})
	mount(g, "/users", resource[domain.User, domain.UserCreate, domain.UserUpdate]{
		list: store.Users, get: store.User, create: store.CreateUser, update: store.UpdateUser, delete: store.DeleteUser,
	})
	mount(g, "/categories", resource[domain.Category, domain.CategoryCreate, domain.CategoryUpdate]{
		list: store.Categories, get: store.Category, create: store.CreateCategory, update: store.UpdateCategory, delete: store.DeleteCategory,
	})
	mount(g, "/courses", resource[domain.Course, domain.CourseCreate, domain.CourseUpdate]{
		list: store.Courses, get: store.Course, create: store.CreateCourse, update: store.UpdateCourse, delete: store.DeleteCourse,
	})
	mount(g, "/tasks", resource[domain.Task, domain.TaskCreate, domain.TaskUpdate]{
		list: store.Tasks, get: store.Task, create: store.CreateTask, update: store.UpdateTask, delete: store.DeleteTask,
	})
	mount(g, "/enrollments", resource[domain.Enrollment, domain.EnrollmentCreate, domain.EnrollmentUpdate]{
		list: store.Enrollments, get: store.Enrollment, create: store.CreateEnrollment, update: store.UpdateEnrollment, delete: store.DeleteEnrollment,
	})
	mount(g, "/task-completions", resource[domain.TaskCompletion, domain.TaskCompletionCreate, domain.TaskCompletionCreate]{
		list: store.TaskCompletions, get: store.TaskCompletion, create: store.CreateTaskCompletion, update: store.UpdateTaskCompletion, delete: store.DeleteTaskCompletion,
	})
}

type resource[T any, C any, U any] struct {
	list   func() []T
	get    func(id int) (T, error)
	create func(C) (T, error)
	update func(id int, data U) (T, error)
	delete func(id int) error
}

func mount[T any, C any, U any](g *echo.Group, path string, r resource[T, C, U]) {
	g.GET(path, func(c echo.Context) error {
		return c.JSON(http.StatusOK, r.list())
	})
	g.GET(path+"/:id", func(c echo.Context) error {
		id, err := pathID(c)
		if err != nil {
			return err
		}
		item, err := r.get(id)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, item)
	})
	g.POST(path, func(c echo.Context) error {
		var in C
		if err := decodeBody(c, &in); err != nil {
			return err
		}
		item, err := r.create(in)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, item)
	})
	g.PUT(path+"/:id", func(c echo.Context) error {
		id, err := pathID(c)
		if err != nil {
			return err
		}
		var in U
		if err := decodeBody(c, &in); err != nil {
			return err
		}
		item, err := r.update(id, in)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, item)
	})
	g.DELETE(path+"/:id", func(c echo.Context) error {
		id, err := pathID(c)
		if err != nil {
			return err
		}
		if err := r.delete(id); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	})
}

func pathID(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusUnprocessableEntity, "invalid id")
	}
	return id, nil
}

func login(store *Store, auth *Auth, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		username := c.FormValue("username")
		password := c.FormValue("password")
		user, ok := store.Authenticate(username, password)
		if !ok {
			c.Response().Header().Set("WWW-Authenticate", "Bearer")
			return c.JSON(http.StatusUnauthorized, detail{"Incorrect username or password"})
		}
		token, err := auth.Issue(user.UserID)
		if errors.Is(err, errIssueDisabled) {
			return c.JSON(http.StatusNotImplemented, detail{err.Error()})
		}
		if err != nil {
			return err
		}
		logger.WithFields(log.Fields{"user_id": user.UserID, "username": user.Username}).Info("token issued")
		return c.JSON(http.StatusOK, domain.Token{AccessToken: token, TokenType: "bearer"})
	}
}

func requireUser(store *Store, auth *Auth) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return unauthorized(c, "Could not validate credentials")
			}
			user, err := store.User(userID)
			if err != nil || !user.IsActive {
				return unauthorized(c, "Could not validate credentials")
			}
			c.Set(ctxUserKey, user)
			return next(c)
		}
	}
}

func unauthorized(c echo.Context, msg string) error {
	c.Response().Header().Set("WWW-Authenticate", "Bearer")
	return c.JSON(http.StatusUnauthorized, detail{msg})
}

// errorHandler renders every error as {"detail": ...}.
func errorHandler(logger *log.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status := http.StatusInternalServerError
		var body any = "Internal Server Error"

		var nf *NotFoundError
		var verr *domain.ValidationError
		var he *echo.HTTPError
		switch {
		case errors.As(err, &nf):
			status, body = http.StatusNotFound, nf.Error()
		case errors.As(err, &verr):
			status, body = http.StatusUnprocessableEntity, []map[string]any{{
				"loc": []string{"body", verr.Field},
				"msg": verr.Reason,
			}}
		case errors.Is(err, ErrConflict):
			status, body = http.StatusBadRequest, err.Error()
		case errors.As(err, &he):
			status, body = he.Code, he.Message
		default:
			logger.WithError(err).WithField("path", c.Request().URL.Path).Error("request failed")
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, detail{body})
		}
		if err != nil {
			logger.WithError(err).Warn("write error response")
		}
	}
}

func requestLogger(logger *log.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			entry := logger.WithFields(log.Fields{
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"request_id": v.RequestID,
				"latency_ms": v.Latency.Milliseconds(),
			})
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Debug("request")
			return nil
		},
	})
}
