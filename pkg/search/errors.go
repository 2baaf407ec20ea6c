package search

import (
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// ErrBothProvidersUnavailable is matched by the error FindOptimalVM returns
// when no configured provider produced a catalog.
var ErrBothProvidersUnavailable = errors.New("both providers unavailable")

// ProvidersUnavailableError carries every provider failure of a search that
// ended with no catalog at all.
type ProvidersUnavailableError struct {
	Causes *multierror.Error
}

func (e *ProvidersUnavailableError) Error() string {
	return ErrBothProvidersUnavailable.Error() + ": " + e.Causes.Error()
}

func (e *ProvidersUnavailableError) Is(target error) bool {
	return target == ErrBothProvidersUnavailable
}

func (e *ProvidersUnavailableError) Unwrap() error {
	return e.Causes.ErrorOrNil()
}
