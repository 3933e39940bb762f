package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/FranksOps/sitehunt/internal/sheet"
)

func TestExplain(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{fmt.Errorf("open: %w", sheet.ErrFileNotFound), "not found"},
		{fmt.Errorf("save: %w", sheet.ErrPermission), "not open elsewhere"},
		{&LimitError{Count: 301, Max: 300}, "Too many companies (301). Max 300"},
		{&sheet.SheetError{Sheet: "Input"}, `Sheet "Input" not found`},
		{sheet.ErrInvalidWorkbook, ".xlsx"},
		{context.Canceled, "Stopped by user"},
		{errors.New("disk on fire"), "disk on fire"},
	}
	for _, tt := range tests {
		got := Explain(tt.err)
		if tt.want == "" {
			if got != "" {
				t.Errorf("expected empty message for nil, got %q", got)
			}
			continue
		}
		if !strings.Contains(got, tt.want) {
			t.Errorf("Explain(%v) = %q, want it to contain %q", tt.err, got, tt.want)
		}
	}
}
