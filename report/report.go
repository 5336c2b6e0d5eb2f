// Package report exports task boards as xlsx workbooks.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"studenthub/appdata"
	"studenthub/domain"
)

// Sheet names, one per status, plus the assigner's review queue.
const (
	SheetNotStarted = "Not started"
	SheetPending    = "Pending"
	SheetCompleted  = "Completed"
	SheetReview     = "To review"
)

var (
	boardHeader  = []any{"Task ID", "Task", "Course", "Assigned by", "Enrollment ID", "Completion ID"}
	reviewHeader = []any{"Completion ID", "Student", "Task", "Course"}
)

func sheetFor(s domain.TaskStatus) string {
	switch s {
	case domain.StatusPending:
		return SheetPending
	case domain.StatusCompleted:
		return SheetCompleted
	default:
		return SheetNotStarted
	}
}

// Write renders the board, one sheet per status, and the review queue when it
// is not empty.
func Write(w io.Writer, board appdata.Board, review []appdata.ReviewItem) error {
	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	if err := f.SetSheetName("Sheet1", SheetNotStarted); err != nil {
		return err
	}
	for _, status := range domain.Statuses {
		name := sheetFor(status)
		if name != SheetNotStarted {
			if _, err := f.NewSheet(name); err != nil {
				return err
			}
		}
		rows := make([][]any, 0, len(board.Group(status)))
		for _, it := range board.Group(status) {
			completion := any("")
			if it.TaskCompletionID != 0 {
				completion = it.TaskCompletionID
			}
			rows = append(rows, []any{it.Task.TaskID, it.Task.Title, it.Course.Title, it.AssignerName, it.EnrollmentID, completion})
		}
		if err := writeTable(f, name, header, boardHeader, rows); err != nil {
			return err
		}
	}

	if len(review) > 0 {
		if _, err := f.NewSheet(SheetReview); err != nil {
			return err
		}
		rows := make([][]any, 0, len(review))
		for _, r := range review {
			rows = append(rows, []any{r.TaskCompletion.TaskCompletionID, r.StudentName, r.Task.Title, r.Course.Title})
		}
		if err := writeTable(f, SheetReview, header, reviewHeader, rows); err != nil {
			return err
		}
	}

	return f.Write(w)
}

func writeTable(f *excelize.File, sheet string, style int, header []any, rows [][]any) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("%s header: %w", sheet, err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("%s row %d: %w", sheet, i+1, err)
		}
	}
	return f.SetColWidth(sheet, "B", "D", 28)
}
