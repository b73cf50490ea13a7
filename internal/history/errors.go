package history

import (
	"errors"

	foundationerrors "git.home.luguber.info/inful/sitegraph/internal/foundation/errors"
)

var (
	// ErrNotFound indicates no entry exists for a build id.
	ErrNotFound = errors.New("build not found in history")

	// ErrDatabaseOpenFailed indicates the SQLite database could not be opened.
	ErrDatabaseOpenFailed = foundationerrors.FileSystemError("could not open build history database").Build()

	// ErrInitializeSchemaFailed indicates the database schema could not be initialized.
	ErrInitializeSchemaFailed = foundationerrors.InternalError("failed to initialize build history schema").Build()
)
