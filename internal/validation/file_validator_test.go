package validation

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("order_id,sales\n"), 0644))
	return path
}

func TestFileValidator_ValidateInputFile(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name          string
		path          string
		wantErr       bool
		errorContains string
	}{
		{"csv", touch(t, dir, "orders.csv"), false, ""},
		{"upper case workbook", touch(t, dir, "ORDERS.XLSX"), false, ""},
		{"macro workbook", touch(t, dir, "orders.xlsm"), false, ""},
		{"unsupported extension", touch(t, dir, "orders.txt"), true, "not a supported input"},
		{"temporary workbook", touch(t, dir, "~$orders.xlsx"), true, "temporary Excel file"},
		{"missing", filepath.Join(dir, "missing.csv"), true, "does not exist"},
		{"directory", dir, true, "is a directory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewFileValidator(slog.Default()).ValidateInputFile(tt.path)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFileValidator_ResolveInputs(t *testing.T) {
	dir := t.TempDir()
	b := touch(t, dir, "b.csv")
	a := touch(t, dir, "a.xlsx")
	touch(t, dir, "notes.txt")
	touch(t, dir, "~$a.xlsx")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.csv"), 0755))

	other := t.TempDir()
	extra := touch(t, other, "extra.csv")

	files, err := NewFileValidator(nil).ResolveInputs([]string{extra, dir, b})
	require.NoError(t, err)
	assert.Equal(t, []string{extra, a, b}, files)
}

func TestFileValidator_ResolveInputsErrors(t *testing.T) {
	tests := []struct {
		name          string
		args          func(t *testing.T) []string
		errorContains string
	}{
		{
			name:          "no arguments",
			args:          func(t *testing.T) []string { return nil },
			errorContains: "no input files",
		},
		{
			name:          "empty directory",
			args:          func(t *testing.T) []string { return []string{t.TempDir()} },
			errorContains: "no input files",
		},
		{
			name: "missing path",
			args: func(t *testing.T) []string {
				return []string{filepath.Join(t.TempDir(), "gone")}
			},
			errorContains: "does not exist",
		},
		{
			name: "unsupported file",
			args: func(t *testing.T) []string {
				return []string{touch(t, t.TempDir(), "orders.json")}
			},
			errorContains: "not a supported input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFileValidator(nil).ResolveInputs(tt.args(t))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorContains)
		})
	}
}

func TestFileValidator_ValidateOutputDirectory(t *testing.T) {
	validator := NewFileValidator(nil)

	dir := filepath.Join(t.TempDir(), "reports", "2024")
	require.NoError(t, validator.ValidateOutputDirectory(dir))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	_, err = os.Stat(filepath.Join(dir, ".write_test"))
	assert.True(t, os.IsNotExist(err), "write check file is removed")

	blocker := touch(t, t.TempDir(), "file")
	err = validator.ValidateOutputDirectory(filepath.Join(blocker, "sub"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create output directory")
}
