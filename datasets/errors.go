package datasets

import (
	"errors"
	"fmt"
)

// Common errors returned by the remote dataset loaders.
var (
	// ErrUnknownDataset indicates a name the catalog cannot resolve.
	ErrUnknownDataset = errors.New("unknown dataset")

	// ErrNetwork indicates a fetch failure with no usable cache.
	ErrNetwork = errors.New("network failure fetching dataset")
)

// UnknownDatasetError identifies the catalog and name that failed to resolve.
type UnknownDatasetError struct {
	Source string // "netset" or "konect"
	Name   string
}

func (e *UnknownDatasetError) Error() string {
	return fmt.Sprintf("%s has no dataset named %q", e.Source, e.Name)
}

// Unwrap ties every UnknownDatasetError to ErrUnknownDataset.
func (e *UnknownDatasetError) Unwrap() error { return ErrUnknownDataset }

// NetworkError carries the URL that failed and the underlying cause.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

// Unwrap exposes the underlying transport error.
func (e *NetworkError) Unwrap() error { return e.Err }

// Is matches NetworkError against the ErrNetwork sentinel.
func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// IsUnknownDataset returns true if the error means the dataset name did not
// resolve against its catalog.
func IsUnknownDataset(err error) bool {
	return errors.Is(err, ErrUnknownDataset)
}

// IsNetwork returns true if the error means a download failed.
func IsNetwork(err error) bool {
	return errors.Is(err, ErrNetwork)
}
