package plan

import (
	"errors"
	"fmt"

	"github.com/gnames/gn"
	"github.com/tmforge/tmmigrate/pkg/entity"
	"github.com/tmforge/tmmigrate/pkg/errcode"
)

// ErrCycle is wrapped by errors about cycles of mandatory relations.
var ErrCycle = errors.New("cycle of mandatory relations")

func UnbreakableCycleError(r Relation) error {
	msg := "Relation <em>%s</em> closes a cycle that cannot be deferred"
	vars := []any{r.String()}
	return &gn.Error{
		Code: errcode.PlanCycleError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("relation %s: %w", r, ErrCycle),
	}
}

func UnknownTypeError(r Relation, t entity.Type) error {
	msg := "Relation <em>%s</em> uses unknown type <em>%s</em>"
	vars := []any{r.String(), t}
	return &gn.Error{
		Code: errcode.PlanUnknownTypeError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("relation %s: unknown type %s", r, t),
	}
}
