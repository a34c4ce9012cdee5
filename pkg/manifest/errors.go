package manifest

import (
	"errors"
	"fmt"

	"github.com/gnames/gn"
	"github.com/tmforge/tmmigrate/pkg/entity"
	"github.com/tmforge/tmmigrate/pkg/errcode"
)

// ErrInvalid is wrapped by validation errors.
var ErrInvalid = errors.New("invalid manifest")

func VersionError(v int) error {
	msg := "Manifest version <em>%d</em> is not supported"
	vars := []any{v}
	return &gn.Error{
		Code: errcode.ManifestLoadError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("version %d: %w", v, ErrInvalid),
	}
}

func InvalidError(err error) error {
	msg := "Manifest has conflicting identifier map entries"
	return &gn.Error{
		Code: errcode.ManifestLoadError,
		Msg:  msg,
		Err:  fmt.Errorf("%w: %w", ErrInvalid, err),
	}
}

func UnknownRecordError(d entity.DeferredRef) error {
	msg := "Deferred reference <em>%s.%s</em> belongs to unmapped record <em>%s</em>"
	vars := []any{d.Type, d.Field, d.NewKey}
	return &gn.Error{
		Code: errcode.ManifestLoadError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf("deferred %s.%s of %s: unmapped record: %w",
			d.Type, d.Field, d.NewKey, ErrInvalid),
	}
}

// MismatchError is returned when a stored manifest belongs to another
// source/target pair.
func MismatchError(stored, current string) error {
	msg := "Stored manifest belongs to run <em>%s</em>, current run is <em>%s</em>"
	vars := []any{stored, current}
	return &gn.Error{
		Code: errcode.ManifestMismatchError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("manifest run %s does not match %s", stored, current),
	}
}
