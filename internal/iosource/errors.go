package iosource

import (
	"fmt"

	"github.com/gnames/gn"
	"github.com/tmforge/tmmigrate/pkg/entity"
	"github.com/tmforge/tmmigrate/pkg/errcode"
)

func UnknownKindError(kind string) error {
	msg := "Unknown source kind <em>%s</em>"
	return &gn.Error{
		Code: errcode.SourceConnectionError,
		Msg:  msg,
		Vars: []any{kind},
		Err:  fmt.Errorf("unknown source kind %q", kind),
	}
}

func ConnectionError(kind, location string, err error) error {
	msg := "Cannot open %s source <em>%s</em>"
	return &gn.Error{
		Code: errcode.SourceConnectionError,
		Msg:  msg,
		Vars: []any{kind, location},
		Err:  fmt.Errorf("open %s source %s: %w", kind, location, err),
	}
}

func ReadError(t entity.Type, err error) error {
	msg := "Cannot read <em>%s</em> collection"
	return &gn.Error{
		Code: errcode.SourceReadError,
		Msg:  msg,
		Vars: []any{t.SourceCollection()},
		Err:  fmt.Errorf("read %s: %w", t.SourceCollection(), err),
	}
}

func DecodeError(t entity.Type, key string, err error) error {
	msg := "Cannot decode <em>%s</em> record <em>%s</em>"
	return &gn.Error{
		Code: errcode.SourceDecodeError,
		Msg:  msg,
		Vars: []any{t.SourceCollection(), key},
		Err:  fmt.Errorf("decode %s/%s: %w", t.SourceCollection(), key, err),
	}
}

func InvalidKeyError(id any) error {
	return fmt.Errorf("unsupported _id %s", describe(id))
}
