package discovery

import "errors"

var (
	// ErrContentRootMissing indicates the configured content directory does not exist.
	ErrContentRootMissing = errors.New("content root not found")

	// ErrContentWalkFailed indicates traversal of the content directory failed.
	ErrContentWalkFailed = errors.New("content directory walk failed")

	// ErrFileReadFailed indicates reading a content file failed.
	ErrFileReadFailed = errors.New("content file read failed")

	// ErrFrontMatterInvalid indicates a file's frontmatter could not be parsed.
	ErrFrontMatterInvalid = errors.New("invalid frontmatter")

	// ErrBodyParseFailed indicates the Markdown body could not be parsed.
	ErrBodyParseFailed = errors.New("markdown body parse failed")
)
