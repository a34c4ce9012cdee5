package transform

import (
	"strings"

	"github.com/tmforge/tmmigrate/pkg/entity"
)

func accountRule() Rule {
	return Rule{
		Type:  entity.Account,
		Enums: []string{"role"},
		Apply: func(b *Builder) {
			email := b.RequiredString("email", "email")
			email = strings.ToLower(email)
			b.Set("email", email)

			local, _, _ := strings.Cut(email, "@")
			b.StringOr("display_name", "name", local)
			b.StringOr("locale", "locale", "en")
			b.Enum("role", "role")
			b.TimeOrNow("created_at", "createdAt")
		},
	}
}
