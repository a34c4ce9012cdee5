package iofs

import (
	"fmt"
	"runtime"

	"github.com/gnames/gn"
	"github.com/tmforge/tmmigrate/pkg/errcode"
)

func caller() string {
	pc, _, _, _ := runtime.Caller(2)
	return runtime.FuncForPC(pc).Name()
}

func CreateDirError(dir string, err error) error {
	return &gn.Error{
		Code: errcode.CreateDirError,
		Msg:  "Cannot create directory <em>%s</em>",
		Vars: []any{dir},
		Err:  fmt.Errorf("from %s: mkdir %s: %w", caller(), dir, err),
	}
}

func CopyFileError(file string, err error) error {
	return &gn.Error{
		Code: errcode.CopyFileError,
		Msg:  "Cannot write configuration template to <em>%s</em>",
		Vars: []any{file},
		Err:  fmt.Errorf("from %s: write template %s: %w", caller(), file, err),
	}
}

func ReadFileError(path string, err error) error {
	return &gn.Error{
		Code: errcode.ReadFileError,
		Msg:  "Cannot read configuration <em>%s</em>",
		Vars: []any{path},
		Err:  fmt.Errorf("from %s: read %s: %w", caller(), path, err),
	}
}

func ParseConfigError(path string, err error) error {
	return &gn.Error{
		Code: errcode.ConfigParseError,
		Msg:  "Configuration <em>%s</em> is not valid",
		Vars: []any{path},
		Err:  fmt.Errorf("from %s: parse %s: %w", caller(), path, err),
	}
}
