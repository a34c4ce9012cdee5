package iomanifest

import (
	"fmt"

	"github.com/gnames/gn"
	"github.com/tmforge/tmmigrate/pkg/errcode"
)

func UnknownKindError(kind string) error {
	msg := "Unknown manifest kind <em>%s</em>"
	return &gn.Error{
		Code: errcode.ManifestConnectionError,
		Msg:  msg,
		Vars: []any{kind},
		Err:  fmt.Errorf("unknown manifest kind %q", kind),
	}
}

func ConnectionError(kind, location string, err error) error {
	msg := "Cannot open %s manifest store <em>%s</em>"
	return &gn.Error{
		Code: errcode.ManifestConnectionError,
		Msg:  msg,
		Vars: []any{kind, location},
		Err:  fmt.Errorf("open %s manifest store %s: %w", kind, location, err),
	}
}

func DecodeError(err error) error {
	return fmt.Errorf("decode manifest: %w", err)
}
