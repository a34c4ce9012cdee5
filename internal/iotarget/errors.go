package iotarget

import (
	"fmt"

	"github.com/gnames/gn"
	"github.com/tmforge/tmmigrate/pkg/entity"
	"github.com/tmforge/tmmigrate/pkg/errcode"
)

func ConnectionError(db string, err error) error {
	msg := "Cannot connect to target database <em>%s</em>"
	return &gn.Error{
		Code: errcode.TargetConnectionError,
		Msg:  msg,
		Vars: []any{db},
		Err:  fmt.Errorf("connect to target %s: %w", db, err),
	}
}

// WriteError describes a failed insert. It goes into the report, so it
// is a plain error.
func WriteError(t entity.Type, err error) error {
	return fmt.Errorf("insert into %s: %w", t.TargetCollection(), err)
}

func UpdateError(t entity.Type, key, field string, err error) error {
	return fmt.Errorf("update %s.%s of %s: %w",
		t.TargetCollection(), field, key, err)
}

func ListError(t entity.Type, err error) error {
	msg := "Cannot list written <em>%s</em>"
	return &gn.Error{
		Code: errcode.TargetWriteError,
		Msg:  msg,
		Vars: []any{t.TargetCollection()},
		Err:  fmt.Errorf("list %s: %w", t.TargetCollection(), err),
	}
}

func IndexError(coll string, err error) error {
	msg := "Cannot create indexes of <em>%s</em>"
	return &gn.Error{
		Code: errcode.TargetIndexError,
		Msg:  msg,
		Vars: []any{coll},
		Err:  fmt.Errorf("indexes of %s: %w", coll, err),
	}
}
