package errcode

import (
	"github.com/gnames/gn"
)

const (
	UnknownError gn.ErrorCode = iota

	// File System errors
	CreateDirError
	CopyFileError
	ReadFileError

	// Logging errors
	CreateLogFileError

	// Configuration errors
	ConfigParseError
	PlanUnknownTypeError
	PlanCycleError
	TransformEnumTableError
	TransformUnknownTypeError

	// Transform errors (record is skipped)
	TransformMissingFieldError
	TransformDanglingRefError

	// Source errors
	SourceConnectionError
	SourceReadError
	SourceDecodeError
	SourceIncompleteReadError

	// Target errors
	TargetConnectionError
	TargetWriteError
	TargetUpdateError
	TargetIndexError

	// Manifest errors
	ManifestLoadError
	ManifestSaveError
	ManifestConnectionError
	ManifestMismatchError

	// Migration errors
	MigrateNotConnectedError
	MigrateDuplicateKeyError
	MigrateStageError
	MigrateIncompleteError
	MigrateCancelledError
	MigrateMissingDependencyError
	MetricsWriteError
)
