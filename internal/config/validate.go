package config

import (
	"errors"
	"fmt"

	"github.com/lucasnoah/augment/internal/augment"
)

// ValidationError represents a single validation issue with a config.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks a PipelineConfig for structural and semantic errors.
// It returns a slice of all validation errors found (empty if valid).
// Every operation is checked against its registered parameter domain.
func Validate(cfg *PipelineConfig) []ValidationError {
	var errs []ValidationError
	p := cfg.Pipeline

	if p.Source == "" {
		errs = append(errs, ValidationError{Field: "pipeline.source", Message: "is required"})
	}
	if p.Samples < 0 {
		errs = append(errs, ValidationError{
			Field:   "pipeline.samples",
			Message: fmt.Sprintf("must not be negative, got %d", p.Samples),
		})
	}
	if p.Workers < 0 {
		errs = append(errs, ValidationError{
			Field:   "pipeline.workers",
			Message: fmt.Sprintf("must not be negative, got %d", p.Workers),
		})
	}
	if p.Format != "" && !augment.SupportedFormat(p.Format) {
		errs = append(errs, ValidationError{
			Field:   "pipeline.format",
			Message: fmt.Sprintf("unsupported image format %q", p.Format),
		})
	}

	for i, spec := range p.Operations {
		if _, err := augment.Build(spec); err != nil {
			field := fmt.Sprintf("pipeline.operations[%d]", i)
			msg := err.Error()
			var cfgErr *augment.ConfigurationError
			if errors.As(err, &cfgErr) {
				if cfgErr.Field != "" {
					field += "." + cfgErr.Field
				}
				msg = cfgErr.Message
				if cfgErr.Kind != "" {
					msg = fmt.Sprintf("%s (%s)", msg, cfgErr.Kind)
				}
			}
			errs = append(errs, ValidationError{Field: field, Message: msg})
		}
	}

	return errs
}
