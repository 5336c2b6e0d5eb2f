package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"studenthub/appdata"
	"studenthub/domain"
	"studenthub/report"
)

const envPassword = "STUDENTHUB_PASSWORD"

func registerCommands(r *Registry) {
	r.Register(&Command{
		Name:        "login",
		Description: "Sign in and remember the session",
		Usage:       "studenthub login -u <username> [-p <password>]",
		Examples:    []string{"studenthub login -u ana", "STUDENTHUB_PASSWORD=secret studenthub login -u ana"},
		Anonymous:   true,
		Run:         loginCommand,
	})
	r.Register(&Command{
		Name:        "logout",
		Description: "Forget the stored session",
		Usage:       "studenthub logout",
		Anonymous:   true,
		Run:         logoutCommand,
	})
	r.Register(&Command{
		Name:        "whoami",
		Description: "Show the signed-in user",
		Usage:       "studenthub whoami",
		Run:         whoamiCommand,
	})
	r.Register(&Command{
		Name:        "categories",
		Description: "List, create or delete categories",
		Usage:       "studenthub categories [-create <name> [-description <text>]] [-delete <id>]",
		Examples:    []string{"studenthub categories", "studenthub categories -create Mathematics"},
		Run:         categoriesCommand,
	})
	r.Register(&Command{
		Name:        "courses",
		Description: "List, create, rename or delete courses",
		Usage:       "studenthub courses [-category <id>] [-create <title> -category-id <id> [-deadline-days <n>]] [-update <id> -title <title>] [-delete <id>]",
		Examples:    []string{"studenthub courses -category 1", "studenthub courses -create Geometry -category-id 1 -deadline-days 30"},
		Run:         coursesCommand,
	})
	r.Register(&Command{
		Name:        "tasks",
		Description: "List, create, rename or delete tasks",
		Usage:       "studenthub tasks [-course <id>] [-create <title> -course-id <id>] [-update <id> -title <title>] [-delete <id>]",
		Examples:    []string{"studenthub tasks -course 1", "studenthub tasks -create Fractions -course-id 1"},
		Run:         tasksCommand,
	})
	r.Register(&Command{
		Name:        "students",
		Description: "List users with the student role",
		Usage:       "studenthub students",
		Run:         studentsCommand,
	})
	r.Register(&Command{
		Name:        "enrollments",
		Description: "List enrollments",
		Usage:       "studenthub enrollments [-student <id>] [-course <id>]",
		Run:         enrollmentsCommand,
	})
	r.Register(&Command{
		Name:        "assign",
		Description: "Assign a course to a student",
		Usage:       "studenthub assign -student <id> -course <id> [-deadline YYYY-MM-DD]",
		Examples:    []string{"studenthub assign -student 3 -course 1 -deadline 2025-06-30"},
		Run:         assignCommand,
	})
	r.Register(&Command{
		Name:        "unassign",
		Description: "Remove a course assignment",
		Usage:       "studenthub unassign <enrollment-id>",
		Run:         unassignCommand,
	})
	r.Register(&Command{
		Name:        "board",
		Description: "Show your tasks grouped by status",
		Usage:       "studenthub board [-status notStarted|pending|completed]",
		Examples:    []string{"studenthub board", "studenthub board -status pending"},
		Run:         boardCommand,
	})
	r.Register(&Command{
		Name:        "review",
		Description: "List completions waiting for your approval",
		Usage:       "studenthub review",
		Run:         reviewCommand,
	})
	r.Register(&Command{
		Name:        "completions",
		Description: "List task completions with their students",
		Usage:       "studenthub completions [-all] [-pending]",
		Run:         completionsCommand,
	})
	r.Register(&Command{
		Name:        "complete",
		Description: "Ask for approval of a finished task",
		Usage:       "studenthub complete <task-id>",
		Run:         completeCommand,
	})
	r.Register(&Command{
		Name:        "approve",
		Description: "Approve a pending task completion",
		Usage:       "studenthub approve <completion-id>",
		Run:         approveCommand,
	})
	r.Register(&Command{
		Name:        "export",
		Description: "Write your task board and review queue to an xlsx file",
		Usage:       "studenthub export [-o board.xlsx]",
		Run:         exportCommand,
	})
}

// failed prefers the store's user-facing message over the raw error.
func failed(msg string, err error) error {
	if msg == "" {
		return err
	}
	return fmt.Errorf("%s (%w)", msg, err)
}

func newTable(w io.Writer, header ...string) *tabwriter.Writer {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	return tw
}

func row(tw *tabwriter.Writer, cells ...any) {
	parts := make([]string, len(cells))
	for i, c := range cells {
		parts[i] = fmt.Sprint(c)
	}
	fmt.Fprintln(tw, strings.Join(parts, "\t"))
}

func optional(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func idArg(args []string, what string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected exactly one %s", what)
	}
	id, err := strconv.Atoi(args[0])
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", what, args[0])
	}
	return id, nil
}

func loginCommand(ctx context.Context, a *app, args []string) error {
	fs := a.flags()
	username := fs.String("u", "", "username")
	password := fs.String("p", "", "password (or set "+envPassword+")")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *password == "" {
		*password = os.Getenv(envPassword)
	}
	if *username == "" || *password == "" {
		return errors.New("username and password are required")
	}
	if err := a.session.Login(ctx, *username, *password); err != nil {
		return failed(a.session.Err(), err)
	}
	u := a.session.User()
	role := "-"
	if u.Role != nil {
		role = u.Role.Name
	}
	fmt.Fprintf(a.out, "Logged in as %s (%s)\n", u.Username, role)
	return nil
}

func logoutCommand(ctx context.Context, a *app, _ []string) error {
	if err := a.session.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func whoamiCommand(_ context.Context, a *app, _ []string) error {
	if err := a.requireUser(); err != nil {
		return err
	}
	u := a.session.User()
	tw := newTable(a.out, "ID", "USERNAME", "NAME", "EMAIL", "ROLE")
	role := "-"
	if u.Role != nil {
		role = u.Role.Name
	}
	row(tw, u.UserID, u.Username, u.FullName(), u.Email, role)
	return tw.Flush()
}

func categoriesCommand(ctx context.Context, a *app, args []string) error {
	fs := a.flags()
	create := fs.String("create", "", "name of a category to create")
	description := fs.String("description", "", "description for -create")
	del := fs.Int("delete", 0, "id of a category to delete")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cats := a.stores.Categories
	switch {
	case *create != "":
		in := domain.CategoryCreate{Name: *create, IsActive: true}
		if *description != "" {
			in.Description = description
		}
		c, err := cats.Create(ctx, in)
		if err != nil {
			return failed(cats.Err(), err)
		}
		fmt.Fprintf(a.out, "Created category %d\n", c.CategoryID)
		return nil
	case *del != 0:
		if err := cats.Delete(ctx, *del); err != nil {
			return failed(cats.Err(), err)
		}
		fmt.Fprintf(a.out, "Deleted category %d\n", *del)
		return nil
	}
	if err := cats.FetchAll(ctx); err != nil {
		return failed(cats.Err(), err)
	}
	tw := newTable(a.out, "ID", "NAME", "DESCRIPTION", "ACTIVE")
	for _, c := range cats.Items() {
		row(tw, c.CategoryID, c.Name, optional(c.Description), c.IsActive)
	}
	return tw.Flush()
}

func coursesCommand(ctx context.Context, a *app, args []string) error {
	fs := a.flags()
	category := fs.Int("category", 0, "only list courses in this category")
	create := fs.String("create", "", "title of a course to create")
	categoryID := fs.Int("category-id", 0, "category for -create")
	deadlineDays := fs.Int("deadline-days", 0, "days students get to finish, for -create")
	update := fs.Int("update", 0, "id of a course to rename")
	title := fs.String("title", "", "new title for -update")
	del := fs.Int("delete", 0, "id of a course to delete")
	if err := fs.Parse(args); err != nil {
		return err
	}
	courses := a.stores.Courses
	switch {
	case *create != "":
		in := domain.CourseCreate{Title: *create, CategoryID: *categoryID, IsActive: true}
		if *deadlineDays > 0 {
			in.DeadlineInDays = deadlineDays
		}
		if u := a.session.User(); u != nil {
			in.TeacherID = &u.UserID
		}
		c, err := courses.Create(ctx, in)
		if err != nil {
			return failed(courses.Err(), err)
		}
		fmt.Fprintf(a.out, "Created course %d\n", c.CourseID)
		return nil
	case *update != 0:
		if *title == "" {
			return errors.New("-update needs -title")
		}
		c, err := courses.Update(ctx, *update, domain.CourseUpdate{Title: title})
		if err != nil {
			return failed(courses.Err(), err)
		}
		fmt.Fprintf(a.out, "Updated course %d: %s\n", c.CourseID, c.Title)
		return nil
	case *del != 0:
		if err := courses.Delete(ctx, *del); err != nil {
			return failed(courses.Err(), err)
		}
		fmt.Fprintf(a.out, "Deleted course %d\n", *del)
		return nil
	}
	if err := courses.FetchAll(ctx); err != nil {
		return failed(courses.Err(), err)
	}
	items := courses.Items()
	if *category != 0 {
		items = courses.ByCategory(*category)
	}
	tw := newTable(a.out, "ID", "TITLE", "CATEGORY", "DEADLINE DAYS", "ACTIVE")
	for _, c := range items {
		days := "-"
		if c.DeadlineInDays != nil {
			days = strconv.Itoa(*c.DeadlineInDays)
		}
		row(tw, c.CourseID, c.Title, c.CategoryID, days, c.IsActive)
	}
	return tw.Flush()
}

func tasksCommand(ctx context.Context, a *app, args []string) error {
	fs := a.flags()
	course := fs.Int("course", 0, "only list tasks of this course")
	create := fs.String("create", "", "title of a task to create")
	courseID := fs.Int("course-id", 0, "course for -create")
	update := fs.Int("update", 0, "id of a task to rename")
	title := fs.String("title", "", "new title for -update")
	del := fs.Int("delete", 0, "id of a task to delete")
	if err := fs.Parse(args); err != nil {
		return err
	}
	tasks := a.stores.Tasks
	switch {
	case *create != "":
		t, err := tasks.Create(ctx, domain.TaskCreate{Title: *create, CourseID: *courseID, IsActive: true})
		if err != nil {
			return failed(tasks.Err(), err)
		}
		fmt.Fprintf(a.out, "Created task %d\n", t.TaskID)
		return nil
	case *update != 0:
		if *title == "" {
			return errors.New("-update needs -title")
		}
		t, err := tasks.Update(ctx, *update, domain.TaskUpdate{Title: title})
		if err != nil {
			return failed(tasks.Err(), err)
		}
		fmt.Fprintf(a.out, "Updated task %d: %s\n", t.TaskID, t.Title)
		return nil
	case *del != 0:
		if err := tasks.Delete(ctx, *del); err != nil {
			return failed(tasks.Err(), err)
		}
		fmt.Fprintf(a.out, "Deleted task %d\n", *del)
		return nil
	}
	if err := tasks.FetchAll(ctx); err != nil {
		return failed(tasks.Err(), err)
	}
	items := tasks.Items()
	if *course != 0 {
		items = tasks.ByCourse(*course)
	}
	tw := newTable(a.out, "ID", "TITLE", "COURSE", "ACTIVE")
	for _, t := range items {
		row(tw, t.TaskID, t.Title, t.CourseID, t.IsActive)
	}
	return tw.Flush()
}

func studentsCommand(ctx context.Context, a *app, _ []string) error {
	users := a.stores.Users
	if err := users.FetchAll(ctx); err != nil {
		return failed(users.Err(), err)
	}
	tw := newTable(a.out, "ID", "USERNAME", "NAME", "EMAIL")
	for _, u := range users.Students() {
		row(tw, u.UserID, u.Username, u.FullName(), u.Email)
	}
	return tw.Flush()
}

func enrollmentsCommand(ctx context.Context, a *app, args []string) error {
	fs := a.flags()
	student := fs.Int("student", 0, "only list enrollments of this student")
	course := fs.Int("course", 0, "only list enrollments in this course")
	if err := fs.Parse(args); err != nil {
		return err
	}
	en := a.stores.Enrollments
	if err := en.FetchAll(ctx); err != nil {
		return failed(en.Err(), err)
	}
	items := en.Filter(func(e domain.Enrollment) bool {
		return (*student == 0 || e.StudentID == *student) && (*course == 0 || e.CourseID == *course)
	})
	tw := newTable(a.out, "ID", "STUDENT", "COURSE", "ASSIGNER", "ENROLLED", "DEADLINE")
	for _, e := range items {
		enrolled, deadline := "-", "-"
		if e.EnrolledAt != nil {
			enrolled = e.EnrolledAt.String()
		}
		if e.Deadline != nil {
			deadline = e.Deadline.String()
		}
		row(tw, e.EnrollmentID, e.StudentID, e.CourseID, e.AssignerID, enrolled, deadline)
	}
	return tw.Flush()
}

func assignCommand(ctx context.Context, a *app, args []string) error {
	if err := a.requireUser(); err != nil {
		return err
	}
	fs := a.flags()
	student := fs.Int("student", 0, "student id")
	course := fs.Int("course", 0, "course id")
	deadline := fs.String("deadline", "", "deadline as YYYY-MM-DD")
	if err := fs.Parse(args); err != nil {
		return err
	}
	in := domain.EnrollmentCreate{
		StudentID:  *student,
		CourseID:   *course,
		AssignerID: a.session.User().UserID,
		IsActive:   true,
	}
	if *deadline != "" {
		d, err := domain.ParseDate(*deadline)
		if err != nil {
			return fmt.Errorf("invalid deadline %q", *deadline)
		}
		in.Deadline = &d
	}
	en := a.stores.Enrollments
	e, err := en.Create(ctx, in)
	if err != nil {
		return failed(en.Err(), err)
	}
	fmt.Fprintf(a.out, "Assigned course %d to student %d (enrollment %d)\n", e.CourseID, e.StudentID, e.EnrollmentID)
	return nil
}

func unassignCommand(ctx context.Context, a *app, args []string) error {
	id, err := idArg(args, "enrollment id")
	if err != nil {
		return err
	}
	en := a.stores.Enrollments
	if err := en.Delete(ctx, id); err != nil {
		return failed(en.Err(), err)
	}
	fmt.Fprintf(a.out, "Removed enrollment %d\n", id)
	return nil
}

func refresh(ctx context.Context, a *app) error {
	if err := a.requireUser(); err != nil {
		return err
	}
	if err := a.data.RefreshAll(ctx); err != nil {
		return failed(a.data.Err(), err)
	}
	return nil
}

func printTaskItems(w io.Writer, items []appdata.TaskItem) error {
	tw := newTable(w, "TASK", "TITLE", "COURSE", "ASSIGNED BY", "STATUS")
	for _, it := range items {
		row(tw, it.Task.TaskID, it.Task.Title, it.Course.Title, it.AssignerName, it.Status)
	}
	return tw.Flush()
}

func boardCommand(ctx context.Context, a *app, args []string) error {
	fs := a.flags()
	status := fs.String("status", "", "only show tasks with this status")
	if err := fs.Parse(args); err != nil {
		return err
	}
	var only domain.TaskStatus
	if *status != "" {
		s, err := domain.ParseTaskStatus(*status)
		if err != nil {
			return err
		}
		only = s
	}
	if err := refresh(ctx, a); err != nil {
		return err
	}
	if only != "" {
		return printTaskItems(a.out, a.data.TasksByStatus(only))
	}
	board := a.data.Board()
	for _, s := range domain.Statuses {
		items := board.Group(s)
		fmt.Fprintf(a.out, "== %s (%d)\n", s, len(items))
		if err := printTaskItems(a.out, items); err != nil {
			return err
		}
		fmt.Fprintln(a.out)
	}
	return nil
}

func reviewCommand(ctx context.Context, a *app, _ []string) error {
	if err := refresh(ctx, a); err != nil {
		return err
	}
	tw := newTable(a.out, "COMPLETION", "STUDENT", "TASK", "COURSE")
	for _, r := range a.data.TasksToReview() {
		row(tw, r.TaskCompletion.TaskCompletionID, r.StudentName, r.Task.Title, r.Course.Title)
	}
	return tw.Flush()
}

func completionsCommand(ctx context.Context, a *app, args []string) error {
	if err := a.requireUser(); err != nil {
		return err
	}
	fs := a.flags()
	all := fs.Bool("all", false, "include completions unrelated to you")
	pending := fs.Bool("pending", false, "only completions awaiting approval")
	if err := fs.Parse(args); err != nil {
		return err
	}
	userID := a.session.User().UserID
	if *all {
		userID = 0
	}
	tc := a.stores.TaskCompletions
	items, err := tc.FetchDetailed(ctx, userID)
	if err != nil {
		return failed(tc.Err(), err)
	}
	tw := newTable(a.out, "ID", "TASK", "STUDENT", "ASSIGNER", "STATUS")
	for _, d := range items {
		if *pending && d.IsActive {
			continue
		}
		row(tw, d.TaskCompletionID, d.TaskID, d.StudentName, d.AssignerID, domain.StatusOf(&d.TaskCompletion))
	}
	return tw.Flush()
}

func completeCommand(ctx context.Context, a *app, args []string) error {
	id, err := idArg(args, "task id")
	if err != nil {
		return err
	}
	if err := refresh(ctx, a); err != nil {
		return err
	}
	if err := a.data.CompleteTask(ctx, id); err != nil {
		return failed(a.data.Err(), err)
	}
	fmt.Fprintf(a.out, "Task %d sent for approval\n", id)
	return nil
}

func approveCommand(ctx context.Context, a *app, args []string) error {
	id, err := idArg(args, "completion id")
	if err != nil {
		return err
	}
	if err := refresh(ctx, a); err != nil {
		return err
	}
	if err := a.data.ApproveTask(ctx, id); err != nil {
		return failed(a.data.Err(), err)
	}
	fmt.Fprintf(a.out, "Completion %d approved\n", id)
	return nil
}

func exportCommand(ctx context.Context, a *app, args []string) error {
	fs := a.flags()
	path := fs.String("o", "board.xlsx", "output file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := refresh(ctx, a); err != nil {
		return err
	}
	f, err := os.Create(*path)
	if err != nil {
		return err
	}
	if err := report.Write(f, a.data.Board(), a.data.TasksToReview()); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Wrote %s\n", *path)
	return nil
}
