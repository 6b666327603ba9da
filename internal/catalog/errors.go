package catalog

import "errors"

// Sentinel errors for catalog operations.
var (
	ErrMissingFields   = errors.New("missing required fields")
	ErrNoPendingImage  = errors.New("no product image selected")
	ErrEmptyLocator    = errors.New("artifact has no locator")
	ErrProductNotFound = errors.New("product not found")
)
