package common

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"rezscan/internal/errors"
	"rezscan/internal/types"
	"rezscan/internal/utils"
)

// FileProcessor handles common file operations
type FileProcessor struct {
	logger      *errors.Logger
	maxFileSize int64
}

// NewFileProcessor creates a new file processor instance. A maxFileSize of
// zero disables the per-file size limit.
func NewFileProcessor(logger *errors.Logger, maxFileSize int64) *FileProcessor {
	return &FileProcessor{logger: logger, maxFileSize: maxFileSize}
}

// ReadAttachment reads a file as an opaque upload named after its base name
func (fp *FileProcessor) ReadAttachment(filename string) (types.Attachment, error) {
	if err := utils.ValidateInputFile(filename, fp.maxFileSize); err != nil {
		code := errors.ErrCodeFileNotReadable
		info, statErr := os.Stat(filename)
		switch {
		case os.IsNotExist(statErr):
			code = errors.ErrCodeFileNotFound
		case statErr == nil && fp.maxFileSize > 0 && info.Size() > fp.maxFileSize:
			code = errors.ErrCodeFileTooLarge
		}
		return types.Attachment{}, errors.NewValidationError(code,
			fmt.Sprintf("Invalid file %s", filename), err)
	}

	if !utils.IsUploadFile(filename) {
		if fp.logger != nil {
			fp.logger.Warn("File type may not be supported by the scoring service",
				"filename", filename,
				"supported", utils.UploadExtensions)
		} else {
			fmt.Fprintf(os.Stderr, "Warning: %s may not be a supported document type\n", filename)
		}
	}

	content, err := fp.readFile(filename)
	if err != nil {
		return types.Attachment{}, err
	}
	return types.Attachment{Name: filepath.Base(filename), Content: content}, nil
}

// ReadAttachments reads every file in order
func (fp *FileProcessor) ReadAttachments(filenames ...string) ([]types.Attachment, error) {
	attachments := make([]types.Attachment, 0, len(filenames))
	for _, filename := range filenames {
		a, err := fp.ReadAttachment(filename)
		if err != nil {
			return nil, err
		}
		attachments = append(attachments, a)
	}
	return attachments, nil
}

func (fp *FileProcessor) readFile(filename string) ([]byte, error) {
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

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Failed to read file content: %s", filename), err)
	}
	return content, nil
}

// WriteFile writes content to a file with directory creation
func (fp *FileProcessor) WriteFile(filename string, content []byte) error {
	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return errors.NewIOError("DIRECTORY_CREATE_FAILED",
				fmt.Sprintf("Cannot create directory: %s", dir), err)
		}
	}

	if err := os.WriteFile(filename, content, 0600); err != nil {
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
