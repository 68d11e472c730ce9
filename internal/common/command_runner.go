package common

import (
	"context"

	"rezscan/internal/errors"
	"rezscan/internal/types"
)

// UploadFunc runs one operation over the uploaded job description and resumes
type UploadFunc[Output any] func(ctx context.Context, jobDescription types.Attachment, resumes []types.Attachment) (Output, error)

// UploadCommand describes a file-based CLI invocation
type UploadCommand struct {
	Output             CommandConfig
	MaxFileSize        int64
	JobDescriptionPath string
	ResumePaths        []string
}

// RunUploadCommand reads the inputs, runs operation and writes its formatted result.
// The raw result is returned so callers can act on it further.
func RunUploadCommand[Output any](
	ctx context.Context,
	logger *errors.Logger,
	cmd UploadCommand,
	operation UploadFunc[Output],
) (Output, error) {
	var zero Output

	fileProcessor := NewFileProcessor(logger, cmd.MaxFileSize)
	outputHandler := NewOutputHandler(logger)

	jobDescription, err := fileProcessor.ReadAttachment(cmd.JobDescriptionPath)
	if err != nil {
		return zero, err
	}
	resumes, err := fileProcessor.ReadAttachments(cmd.ResumePaths...)
	if err != nil {
		return zero, err
	}

	if logger != nil {
		logger.Info("Submitting files for matching",
			"job_description", jobDescription.Name,
			"resumes", len(resumes),
			"format", cmd.Output.OutputFormat)
	}

	result, err := operation(ctx, jobDescription, resumes)
	if err != nil {
		return zero, err
	}

	return result, outputHandler.HandleOutput(result, cmd.Output)
}
