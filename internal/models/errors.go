package models

import "errors"

var (
	// ErrMalformedDocument indicates a course document that violates the
	// expected format: missing mandatory headers, no lesson markers, or
	// lesson numbers that do not increase.
	ErrMalformedDocument = errors.New("malformed course document")

	// ErrCourseNotFound indicates a course-name filter that resolved to no
	// catalog entry with sufficient confidence.
	ErrCourseNotFound = errors.New("course not found")

	// ErrIndexUnavailable indicates the vector index or its backing store
	// could not serve the request.
	ErrIndexUnavailable = errors.New("vector index unavailable")

	// ErrModelCall indicates a failed call to the language model provider.
	ErrModelCall = errors.New("model call failed")
)
