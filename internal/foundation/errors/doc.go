// Package errors provides the classified error primitives used across sitegraph.
//
// A ClassifiedError carries a category (config, content, cache, render, ...),
// a severity and structured context. Build stages use the category to decide
// whether a failure aborts the build, is recorded against a single page, or
// downgrades to a warning.
//
// Example usage:
//
//	err := errors.NewError(errors.CategoryContent, "duplicate page id").
//		WithSeverity(errors.SeverityWarning).
//		WithContext("id", id).
//		WithCause(cause).
//		Build()
package errors
