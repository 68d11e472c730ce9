package common

import (
	"fmt"
	"slices"

	"rezscan/internal/errors"
	"rezscan/internal/report"
)

// ValidateOutputFormat validates format against configured supported formats
func ValidateOutputFormat(format string, supportedFormats []string) error {
	if len(supportedFormats) == 0 {
		return nil // No restrictions configured
	}

	if slices.Contains(supportedFormats, format) {
		return nil
	}

	return errors.NewValidationError(errors.ErrCodeInvalidFormat,
		fmt.Sprintf("unsupported output format '%s'. Supported formats: %v", format, supportedFormats), nil)
}

// ValidateReportFormat resolves a report format name, empty meaning fallback
func ValidateReportFormat(name, fallback string) (report.Format, error) {
	if name == "" {
		name = fallback
	}
	return report.ParseFormat(name)
}
