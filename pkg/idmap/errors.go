package idmap

import (
	"errors"
	"fmt"

	"github.com/gnames/gn"
	"github.com/tmforge/tmmigrate/pkg/entity"
	"github.com/tmforge/tmmigrate/pkg/errcode"
)

// ErrDuplicate is wrapped by errors of conflicting entries.
var ErrDuplicate = errors.New("duplicate identifier map entry")

func DuplicateOldKeyError(t entity.Type, oldKey, prevNew string) error {
	msg := "Record <em>%s</em> of <em>%s</em> is already mapped to <em>%s</em>"
	vars := []any{oldKey, t, prevNew}
	return &gn.Error{
		Code: errcode.MigrateDuplicateKeyError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf("old key %s/%s already mapped to %s: %w",
			t, oldKey, prevNew, ErrDuplicate),
	}
}

func DuplicateNewKeyError(t entity.Type, newKey, prevOld string) error {
	msg := "New key <em>%s</em> of <em>%s</em> is already taken by <em>%s</em>"
	vars := []any{newKey, t, prevOld}
	return &gn.Error{
		Code: errcode.MigrateDuplicateKeyError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf("new key %s/%s already taken by %s: %w",
			t, newKey, prevOld, ErrDuplicate),
	}
}
