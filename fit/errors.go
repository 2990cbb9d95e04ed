package fit

import "errors"

var (
	ErrUnresolvedBinding   = errors.New("binding has not been resolved against the mesh")
	ErrShapeMismatch       = errors.New("binding and data dimensions do not match")
	ErrUnknownDataSource   = errors.New("unknown data source")
	ErrDuplicateDataSource = errors.New("data source label already in use")
	ErrEmptyData           = errors.New("data source has no points")
	ErrNoNodes             = errors.New("no nodes given")
	ErrUnknownDirection    = errors.New("unknown fit direction")
	ErrUnknownMethod       = errors.New("unknown solver method")
)
