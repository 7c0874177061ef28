package common

import (
	"fmt"
	"slices"

	"atsmatch/internal/formatters"
)

// ValidateOutputFormat checks format against the configured formats and the formatter registry.
// An empty configured list allows every format the registry knows.
func ValidateOutputFormat(format string, supportedFormats []string) error {
	if !formatters.GlobalRegistry.IsSupported(format) {
		return fmt.Errorf("unknown output format '%s'. Available formats: %v",
			format, formatters.GlobalRegistry.GetSupportedFormats())
	}

	if len(supportedFormats) == 0 || slices.Contains(supportedFormats, format) {
		return nil
	}

	return fmt.Errorf("unsupported output format '%s'. Supported formats: %v",
		format, supportedFormats)
}

// GetSupportedFormats returns the configured formats, or every registered one when none are configured
func GetSupportedFormats(supportedFormats []string) []string {
	if len(supportedFormats) == 0 {
		return formatters.GlobalRegistry.GetSupportedFormats()
	}
	return supportedFormats
}
