package catalog

import (
	"errors"
	"fmt"

	"github.com/learnockdevelopment/Mafazaa-Moodle/internal/model"
)

var (
	// ErrFetchFailed matches every *FetchError via errors.Is.
	ErrFetchFailed = errors.New("course fetch failed")

	// ErrSuperseded marks a load whose result was dropped because a newer
	// load was issued. It only appears in logs; callers never receive it.
	ErrSuperseded = errors.New("load superseded")
)

// FetchError reports a failed course fetch for the current generation.
type FetchError struct {
	Generation uint64
	Purpose    model.LoadPurpose
	Err        error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("loading courses (%s, generation %d): %v", e.Purpose, e.Generation, e.Err)
}

// Unwrap returns the underlying source error.
func (e *FetchError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrFetchFailed) true for any FetchError.
func (e *FetchError) Is(target error) bool { return target == ErrFetchFailed }

// InvalidCategoryError is returned by ParseCategory.
type InvalidCategoryError struct {
	Value string
}

func (e *InvalidCategoryError) Error() string {
	return fmt.Sprintf("invalid category %q: expected a number or \"all\"", e.Value)
}
