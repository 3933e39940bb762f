package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/FranksOps/sitehunt/internal/sheet"
)

// Explain turns a workbook-level error into a message for operators.
func Explain(err error) string {
	var (
		limit    *LimitError
		sheetErr *sheet.SheetError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return "Stopped by user. Progress has been saved."
	case errors.Is(err, sheet.ErrFileNotFound):
		return "Excel file not found. Ensure the file exists."
	case errors.Is(err, sheet.ErrPermission):
		return "Permission error: ensure the file is not open elsewhere."
	case errors.As(err, &limit):
		return fmt.Sprintf("Too many companies (%d). Max %d allowed.", limit.Count, limit.Max)
	case errors.As(err, &sheetErr):
		return fmt.Sprintf("Sheet %q not found.", sheetErr.Sheet)
	case errors.Is(err, sheet.ErrInvalidWorkbook):
		return "The file is not a readable .xlsx workbook."
	default:
		return err.Error()
	}
}
