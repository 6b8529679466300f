package augment

import "fmt"

// ConfigurationError reports an operation spec that violates its type's
// parameter domain. Build returns it before any image is read or written.
type ConfigurationError struct {
	Kind    string
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	switch {
	case e.Kind == "":
		return fmt.Sprintf("operation %s: %s", e.Field, e.Message)
	case e.Field == "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s.%s: %s", e.Kind, e.Field, e.Message)
}
