package transform

import (
	"errors"
	"fmt"

	"github.com/gnames/gn"
	"github.com/tmforge/tmmigrate/pkg/entity"
	"github.com/tmforge/tmmigrate/pkg/errcode"
)

var (
	// ErrMissingField is wrapped when a required field is absent.
	ErrMissingField = errors.New("missing required field")

	// ErrDanglingRef is wrapped when a required reference points to a
	// record that was never migrated.
	ErrDanglingRef = errors.New("required reference cannot be resolved")
)

func MissingFieldError(rec entity.Record, field string) error {
	msg := "Record <em>%s</em> of <em>%s</em> misses required field <em>%s</em>"
	vars := []any{rec.Key, rec.Type, field}
	return &gn.Error{
		Code: errcode.TransformMissingFieldError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf("%s/%s field %s: %w",
			rec.Type, rec.Key, field, ErrMissingField),
	}
}

func DanglingRefError(rec entity.Record, field string, old []string) error {
	msg := "Record <em>%s</em> of <em>%s</em> references unknown <em>%s</em> %v"
	vars := []any{rec.Key, rec.Type, field, old}
	return &gn.Error{
		Code: errcode.TransformDanglingRefError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf("%s/%s field %s %v: %w",
			rec.Type, rec.Key, field, old, ErrDanglingRef),
	}
}

func EnumTableError(t entity.Type, field string) error {
	msg := "No enum table for <em>%s.%s</em>"
	vars := []any{t, field}
	return &gn.Error{
		Code: errcode.TransformEnumTableError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("no enum table for %s.%s", t, field),
	}
}

func UnknownTypeError(t entity.Type) error {
	msg := "No transformation rule for <em>%s</em>"
	vars := []any{t}
	return &gn.Error{
		Code: errcode.TransformUnknownTypeError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("no transformation rule for %s", t),
	}
}

func UnknownRelationError(t entity.Type, field string) error {
	msg := "Field <em>%s.%s</em> is not a declared relation"
	vars := []any{t, field}
	return &gn.Error{
		Code: errcode.TransformUnknownTypeError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("field %s.%s is not a declared relation", t, field),
	}
}
