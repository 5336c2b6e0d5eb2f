package report

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"

	"studenthub/appdata"
	"studenthub/domain"
	"studenthub/internal/assertx"
)

func TestWrite(t *testing.T) {
	algebra := domain.Course{CourseID: 10, Title: "Algebra"}
	board := appdata.Board{
		NotStarted: []appdata.TaskItem{{Task: domain.Task{TaskID: 5, Title: "Fractions"}, Course: algebra, AssignerName: "Marta Reis", EnrollmentID: 100}},
		Pending:    []appdata.TaskItem{{Task: domain.Task{TaskID: 6, Title: "Equations"}, Course: algebra, AssignerName: "Marta Reis", EnrollmentID: 100, TaskCompletionID: 7}},
		Completed:  []appdata.TaskItem{},
	}
	review := []appdata.ReviewItem{{
		TaskCompletion: domain.TaskCompletion{TaskCompletionID: 7},
		Task:           domain.Task{Title: "Equations"},
		Course:         algebra,
		StudentName:    "Ana Silva",
	}}

	var buf bytes.Buffer
	assertx.NoErr(t, Write(&buf, board, review))

	f, err := excelize.OpenReader(&buf)
	assertx.NoErr(t, err)
	t.Cleanup(func() { _ = f.Close() })

	sheets := f.GetSheetList()
	assertx.Equal(t, 4, len(sheets))
	assertx.Equal(t, SheetNotStarted, sheets[0])

	rows, err := f.GetRows(SheetNotStarted)
	assertx.NoErr(t, err)
	assertx.Equal(t, 2, len(rows))
	assertx.Equal(t, "Task", rows[0][1])
	assertx.Equal(t, "Fractions", rows[1][1])
	assertx.Equal(t, "Marta Reis", rows[1][3])

	rows, err = f.GetRows(SheetPending)
	assertx.NoErr(t, err)
	assertx.Equal(t, "7", rows[1][5])

	rows, err = f.GetRows(SheetCompleted)
	assertx.NoErr(t, err)
	assertx.Equal(t, 1, len(rows))

	rows, err = f.GetRows(SheetReview)
	assertx.NoErr(t, err)
	assertx.Equal(t, "Ana Silva", rows[1][1])
}

func TestWriteWithoutReview(t *testing.T) {
	var buf bytes.Buffer
	assertx.NoErr(t, Write(&buf, appdata.Board{}, nil))
	f, err := excelize.OpenReader(&buf)
	assertx.NoErr(t, err)
	t.Cleanup(func() { _ = f.Close() })
	assertx.Equal(t, 3, len(f.GetSheetList()))
}
