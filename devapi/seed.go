package devapi

import (
	"studenthub/domain"
)

// Role names created by SeedRoles.
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
)

// SeedRoles creates the admin, teacher and student roles.
func SeedRoles(s *Store) error {
	for _, name := range []string{RoleAdmin, RoleTeacher, domain.RoleStudent} {
		if _, err := s.CreateRole(domain.RoleCreate{Name: name}); err != nil {
			return err
		}
	}
	return nil
}

// DemoPassword is the password of every demo account.
const DemoPassword = "password"

// SeedDemo adds a teacher, two students, a course with three tasks and the
// students' enrollments. Roles must already exist.
func SeedDemo(s *Store) error {
	roleID := map[string]int{}
	for _, r := range s.Roles() {
		roleID[r.Name] = r.RoleID
	}

	users := []domain.UserCreate{
		{Username: "admin", FirstName: "Ada", LastName: "Admin", Email: "admin@studenthub.dev", RoleID: roleID[RoleAdmin]},
		{Username: "teacher", FirstName: "Marta", LastName: "Reis", Email: "teacher@studenthub.dev", RoleID: roleID[RoleTeacher]},
		{Username: "ana", FirstName: "Ana", LastName: "Silva", Email: "ana@studenthub.dev", RoleID: roleID[domain.RoleStudent]},
		{Username: "rui", FirstName: "Rui", LastName: "Costa", Email: "rui@studenthub.dev", RoleID: roleID[domain.RoleStudent]},
	}
	ids := make([]int, len(users))
	for i, u := range users {
		u.Password = DemoPassword
		u.IsActive = true
		created, err := s.CreateUser(u)
		if err != nil {
			return err
		}
		ids[i] = created.UserID
	}
	teacherID := ids[1]

	cat, err := s.CreateCategory(domain.CategoryCreate{Name: "Mathematics", IsActive: true})
	if err != nil {
		return err
	}
	days := 30
	course, err := s.CreateCourse(domain.CourseCreate{
		Title:          "Algebra Basics",
		CategoryID:     cat.CategoryID,
		TeacherID:      &teacherID,
		DeadlineInDays: &days,
		IsActive:       true,
	})
	if err != nil {
		return err
	}
	for _, title := range []string{"Fractions", "Linear equations", "Quadratics"} {
		if _, err := s.CreateTask(domain.TaskCreate{Title: title, CourseID: course.CourseID, IsActive: true}); err != nil {
			return err
		}
	}
	for _, studentID := range ids[2:] {
		_, err := s.CreateEnrollment(domain.EnrollmentCreate{
			StudentID:  studentID,
			CourseID:   course.CourseID,
			AssignerID: teacherID,
			IsActive:   true,
		})
		if err != nil {
			return err
		}
	}
	return nil
}
