package chat

import (
	"errors"
	"fmt"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
)

// ServiceError reports a storage-side failure of one chat operation. Code is stable and safe
// to expose to callers; the wrapped cause is not.
type ServiceError struct {
	operation string
	reason    string
	err       error
}

// Code returns "<operation>.<reason>", e.g. "chat.append_message.seq_increment_failed".
func (e *ServiceError) Code() string {
	return e.operation + "." + e.reason
}

func (e *ServiceError) Operation() string {
	return e.operation
}

func (e *ServiceError) Reason() string {
	return e.reason
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.Code()
	}
	return fmt.Sprintf("%s: %v", e.Code(), e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func newServiceError(operation, reason string, cause error) error {
	return &ServiceError{operation: operation, reason: reason, err: cause}
}
