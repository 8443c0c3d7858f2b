package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// InputExtensions are the order file formats the loader understands.
var InputExtensions = []string{".csv", ".xlsx", ".xlsm"}

// FileValidator checks input files and output directories before a run
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger.With(slog.String("component", "file_validator")),
	}
}

// ResolveInputs expands every argument into input files. Directories
// contribute their supported files in name order; files are checked
// individually. The result keeps argument order and drops repeats.
func (v *FileValidator) ResolveInputs(args []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	add := func(path string) {
		clean := filepath.Clean(path)
		if !seen[clean] {
			seen[clean] = true
			files = append(files, clean)
		}
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if os.IsNotExist(err) {
			v.logger.Error("Input path does not exist",
				slog.String("path", arg))
			return nil, fmt.Errorf("input %s does not exist", arg)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to stat input %s: %w", arg, err)
		}

		if !info.IsDir() {
			if err := v.ValidateInputFile(arg); err != nil {
				return nil, err
			}
			add(arg)
			continue
		}

		matches, err := v.inputFilesIn(arg)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			v.logger.Warn("No input files found in directory",
				slog.String("directory", arg))
		}
		for _, m := range matches {
			add(m)
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no input files found")
	}
	v.logger.Debug("Inputs resolved",
		slog.Int("files", len(files)))
	return files, nil
}

func (v *FileValidator) inputFilesIn(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var matches []string
	for _, e := range entries {
		if e.IsDir() || !isInputExtension(e.Name()) || isTempWorkbook(e.Name()) {
			continue
		}
		matches = append(matches, filepath.Join(dir, e.Name()))
	}
	sort.Strings(matches)
	return matches, nil
}

// ValidateInputFile checks that path is a readable order file
func (v *FileValidator) ValidateInputFile(path string) error {
	if err := v.ValidateFile(path); err != nil {
		return err
	}

	if !isInputExtension(path) {
		v.logger.Error("Unsupported input format",
			slog.String("file", path),
			slog.String("extension", filepath.Ext(path)))
		return fmt.Errorf("file %s is not a supported input (want one of %s)",
			path, strings.Join(InputExtensions, ", "))
	}

	if isTempWorkbook(path) {
		v.logger.Warn("Skipping temporary Excel file",
			slog.String("file", path))
		return fmt.Errorf("file %s is a temporary Excel file", path)
	}

	return nil
}

// ValidateFile checks if a specific file exists and is readable
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist",
			slog.String("file", path))
		return fmt.Errorf("file %s does not exist", path)
	}
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateOutputDirectory ensures output directory exists or can be created
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	// Verify it's writable by creating a test file
	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	file.Close()
	os.Remove(testFile)

	v.logger.Debug("Output directory validated",
		slog.String("directory", dir))
	return nil
}

func isInputExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range InputExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

func isTempWorkbook(path string) bool {
	return strings.HasPrefix(filepath.Base(path), "~$")
}
