package iomigrate

import (
	"fmt"
	"runtime"

	"github.com/gnames/gn"
	"github.com/tmforge/tmmigrate/pkg/entity"
	"github.com/tmforge/tmmigrate/pkg/errcode"
)

func caller() string {
	pc, _, _, _ := runtime.Caller(2)
	return runtime.FuncForPC(pc).Name()
}

func NotConnectedError() error {
	return &gn.Error{
		Code: errcode.MigrateNotConnectedError,
		Msg:  "Source, target or manifest store is not connected",
		Err:  fmt.Errorf("from %s: store is not connected", caller()),
	}
}

func NoManifestError() error {
	return &gn.Error{
		Code: errcode.ManifestLoadError,
		Msg:  "No manifest found, run <em>tmmigrate migrate</em> first",
		Err:  fmt.Errorf("from %s: no manifest", caller()),
	}
}

func ManifestLoadError(err error) error {
	return &gn.Error{
		Code: errcode.ManifestLoadError,
		Msg:  "Cannot load manifest",
		Err:  fmt.Errorf("from %s: cannot load manifest: %w", caller(), err),
	}
}

func ManifestSaveError(err error) error {
	return &gn.Error{
		Code: errcode.ManifestSaveError,
		Msg:  "Cannot save manifest",
		Err:  fmt.Errorf("from %s: cannot save manifest: %w", caller(), err),
	}
}

func UnknownTypeError(t string) error {
	msg := "Unknown entity type <em>%s</em>"
	return &gn.Error{
		Code: errcode.TransformUnknownTypeError,
		Msg:  msg,
		Vars: []any{t},
		Err:  fmt.Errorf("from %s: unknown entity type %s", caller(), t),
	}
}

func MissingDependencyError(t, dep entity.Type) error {
	msg := "Cannot migrate <em>%s</em> before <em>%s</em> is migrated"
	return &gn.Error{
		Code: errcode.MigrateMissingDependencyError,
		Msg:  msg,
		Vars: []any{t, dep},
		Err: fmt.Errorf("from %s: %s depends on not migrated %s",
			caller(), t, dep),
	}
}

func ReadError(t entity.Type, err error) error {
	msg := "Cannot read <em>%s</em> records from the source store"
	return &gn.Error{
		Code: errcode.SourceReadError,
		Msg:  msg,
		Vars: []any{t},
		Err:  fmt.Errorf("from %s: read %s: %w", caller(), t, err),
	}
}

func IncompleteReadError(t entity.Type, read, total int) error {
	msg := "Read <em>%d</em> of <em>%d</em> <em>%s</em> records from the source store"
	return &gn.Error{
		Code: errcode.SourceIncompleteReadError,
		Msg:  msg,
		Vars: []any{read, total, t},
		Err: fmt.Errorf("from %s: read %d of %d %s records",
			caller(), read, total, t),
	}
}

func ReconcileError(t entity.Type, err error) error {
	msg := "Cannot list <em>%s</em> records of the target store"
	return &gn.Error{
		Code: errcode.MigrateStageError,
		Msg:  msg,
		Vars: []any{t},
		Err:  fmt.Errorf("from %s: list %s: %w", caller(), t, err),
	}
}

func ShortWriteError(t entity.Type, sent, got int) error {
	return fmt.Errorf("insert %s: %d documents sent, %d results received",
		t, sent, got)
}

func PatchError(ref entity.DeferredRef, err error) error {
	return fmt.Errorf("patch %s.%s of %s: %w",
		ref.Type, ref.Field, ref.NewKey, err)
}

func CancelledError(err error) error {
	return &gn.Error{
		Code: errcode.MigrateCancelledError,
		Msg:  "Migration was interrupted, the manifest keeps the progress",
		Err:  fmt.Errorf("from %s: cancelled: %w", caller(), err),
	}
}

func MetricsWriteError(path string, err error) error {
	msg := "Cannot write metrics to <em>%s</em>"
	return &gn.Error{
		Code: errcode.MetricsWriteError,
		Msg:  msg,
		Vars: []any{path},
		Err:  fmt.Errorf("from %s: write metrics %s: %w", caller(), path, err),
	}
}

func IncompleteError(errored, failed int, aborted bool) error {
	msg := "Migration is incomplete: <em>%d</em> records errored, " +
		"<em>%d</em> references failed to patch"
	return &gn.Error{
		Code: errcode.MigrateIncompleteError,
		Msg:  msg,
		Vars: []any{errored, failed},
		Err: fmt.Errorf("from %s: incomplete run (errored %d, failed patches %d, aborted %t)",
			caller(), errored, failed, aborted),
	}
}
