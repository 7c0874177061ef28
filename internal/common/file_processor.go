package common

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"atsmatch/internal/errors"
	"atsmatch/internal/extract"
	"atsmatch/internal/types"
	"atsmatch/internal/utils"
)

// FileProcessor reads input documents and writes reports
type FileProcessor struct {
	logger      *errors.Logger
	maxFileSize int64
}

// NewFileProcessor creates a new file processor; maxFileSize <= 0 disables the size check.
func NewFileProcessor(logger *errors.Logger, maxFileSize int64) *FileProcessor {
	return &FileProcessor{logger: logger, maxFileSize: maxFileSize}
}

// ReadFile reads the raw bytes of a file, refusing files above the size limit
func (fp *FileProcessor) ReadFile(filename string) ([]byte, error) {
	file, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewIOError(errors.ErrCodeFileNotFound,
				fmt.Sprintf("File not found: %s", filename), err)
		}
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", filename), err)
	}
	defer func() {
		if err := file.Close(); err != nil && fp.logger != nil {
			fp.logger.Warn("Failed to close file", "filename", filename, "error", err)
		}
	}()

	var reader io.Reader = file
	if fp.maxFileSize > 0 {
		reader = io.LimitReader(file, fp.maxFileSize+1)
	}

	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Failed to read file content: %s", filename), err)
	}
	if fp.maxFileSize > 0 && int64(len(content)) > fp.maxFileSize {
		return nil, fp.tooLarge(filename, int64(len(content)))
	}

	return content, nil
}

// ReadDocument validates a path and loads it as a document for extraction
func (fp *FileProcessor) ReadDocument(filename string) (*types.Document, error) {
	size, err := utils.ValidateInputFile(filename)
	if err != nil {
		return nil, errors.NewValidationError("INVALID_INPUT_FILE",
			fmt.Sprintf("Invalid file %s", filename), err)
	}
	if fp.maxFileSize > 0 && size > fp.maxFileSize {
		return nil, fp.tooLarge(filename, size)
	}

	if !utils.HasExtension(filename, extract.SupportedExtensions(), true) && fp.logger != nil {
		fp.logger.Warn("File extension is not a supported document type",
			"filename", filename,
			"supported", extract.SupportedExtensions())
	}

	data, err := fp.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	if fp.logger != nil {
		fp.logger.Debug("Document loaded", "filename", filename, "size", utils.FormatFileSize(int64(len(data))))
	}
	return &types.Document{Filename: filepath.Base(filename), Data: data}, nil
}

func (fp *FileProcessor) tooLarge(filename string, size int64) error {
	appErr := errors.NewValidationError(errors.ErrCodeFileTooLarge,
		fmt.Sprintf("File %s is too large (%s, limit %s)", filename,
			utils.FormatFileSize(size), utils.FormatFileSize(fp.maxFileSize)), nil)
	return appErr.WithContext("filename", filename)
}

// WriteFile writes content to a file with directory creation
func (fp *FileProcessor) WriteFile(filename, content string) error {
	dir := filepath.Dir(filename)
	if dir != "." {
		err := os.MkdirAll(dir, 0750)
		if err != nil {
			return errors.NewIOError("DIRECTORY_CREATE_FAILED",
				fmt.Sprintf("Cannot create directory: %s", dir), err)
		}
	}

	err := os.WriteFile(filename, []byte(content), 0600)
	if err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED",
			fmt.Sprintf("Cannot write file: %s", filename), err)
	}

	return nil
}

// ValidateOutputFile validates output file path
func (fp *FileProcessor) ValidateOutputFile(filename string) error {
	if filename == "" {
		return nil // stdout is valid
	}

	if err := utils.ValidateOutputFile(filename); err != nil {
		return errors.NewValidationError("INVALID_OUTPUT_FILE",
			fmt.Sprintf("Invalid output file: %s", filename), err)
	}

	return nil
}
