package teamService

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound matches every NotFoundError, whether the resource is
	// missing or the actor may not see it.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition is returned when a membership record is not in
	// the state the requested transition starts from, or when the change
	// would leave a user in two teams or a team without its captain.
	ErrInvalidTransition = errors.New("invalid membership transition")
)

// NotFoundError is reported for lookups that miss and for actions the actor
// is not allowed to take. Denied tells the two apart in logs; callers answer
// both the same way so protected actions do not reveal themselves.
type NotFoundError struct {
	Resource string
	Denied   bool
}

func (e *NotFoundError) Error() string {
	if e.Denied {
		return fmt.Sprintf("%s: permission denied", e.Resource)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func notFound(resource string) error {
	return &NotFoundError{Resource: resource}
}

func denied(resource string) error {
	return &NotFoundError{Resource: resource, Denied: true}
}

// IsDenied reports whether err is an authorization failure disguised as a
// missing resource.
func IsDenied(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf) && nf.Denied
}
