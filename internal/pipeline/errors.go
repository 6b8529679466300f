package pipeline

import "fmt"

// SourceNotFoundError reports a source directory that is missing, unreadable
// or holds no images.
type SourceNotFoundError struct {
	Path   string
	Reason string
	Err    error
}

func (e *SourceNotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("source directory %q %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("source directory %q %s", e.Path, e.Reason)
}

func (e *SourceNotFoundError) Unwrap() error { return e.Err }

// WriteError reports a failure to create or write an output file.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("writing %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
