package exporter

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVWriter_WriteCSV(t *testing.T) {
	tempDir := t.TempDir()
	writer := NewCSVWriter(tempDir, nil)

	tests := []struct {
		name     string
		filePath string
		options  WriteOptions
		expected string
	}{
		{
			name:     "headers and records",
			filePath: "basic.csv",
			options: WriteOptions{
				Headers: []string{"Name", "Value"},
				Records: [][]string{{"a", "1.00"}, {"b", "2.50"}},
			},
			expected: "Name,Value\na,1.00\nb,2.50\n",
		},
		{
			name:     "quotes fields with separators",
			filePath: "quoted.csv",
			options: WriteOptions{
				Headers: []string{"detail"},
				Records: [][]string{{`discount 1.5 outside [0,1]`}, {`say "hi"`}},
			},
			expected: "detail\n\"discount 1.5 outside [0,1]\"\n\"say \"\"hi\"\"\"\n",
		},
		{
			name:     "nested directory",
			filePath: filepath.Join("nested", "deep", "file.csv"),
			options:  WriteOptions{Headers: []string{"h"}},
			expected: "h\n",
		},
		{
			name:     "bom prefix",
			filePath: "bom.csv",
			options:  WriteOptions{Headers: []string{"h"}, BOMPrefix: true},
			expected: "\xEF\xBB\xBFh\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, err := writer.WriteCSV(tt.filePath, tt.options)
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(tempDir, tt.filePath), path)

			content, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(content))
		})
	}
}

func TestCSVWriter_ReplacesExistingFile(t *testing.T) {
	writer := NewCSVWriter(t.TempDir(), nil)

	_, err := writer.WriteCSV("out.csv", WriteOptions{Records: [][]string{{"old"}, {"rows"}, {"here"}}})
	require.NoError(t, err)
	path, err := writer.WriteCSV("out.csv", WriteOptions{Records: [][]string{{"new"}}})
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new\n", string(content))
}

func TestCSVWriter_AbsolutePath(t *testing.T) {
	writer := NewCSVWriter("relative-root", nil)
	target := filepath.Join(t.TempDir(), "abs.csv")

	path, err := writer.WriteCSV(target, WriteOptions{Headers: []string{"x"}})
	require.NoError(t, err)
	assert.Equal(t, target, path)
	assert.FileExists(t, target)
}

func TestCSVWriter_UnwritableDirectory(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	writer := NewCSVWriter(blocker, nil)
	_, err := writer.WriteCSV("out.csv", WriteOptions{Headers: []string{"x"}})
	assert.Error(t, err)
}

func TestEncodeCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeCSV(&buf, WriteOptions{
		Headers: []string{"a", "b"},
		Records: [][]string{{"1", ""}},
	}))
	assert.Equal(t, "a,b\n1,\n", buf.String())
}
