package models

// Error types shared by every map store implementation.
const (
	ErrTypeMapNotFound = "map_not_found"
	ErrTypeMapExists   = "map_exists"
)
