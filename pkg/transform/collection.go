package transform

import (
	"github.com/tmforge/tmmigrate/pkg/entity"
	"github.com/tmforge/tmmigrate/pkg/plan"
)

// collection is the aggregate: it lists its items and every item points
// back to it.
func collectionRule() Rule {
	return Rule{
		Type: entity.Collection,
		Relations: []plan.Relation{
			{
				From:     entity.Collection,
				Field:    "owner",
				To:       entity.Account,
				Required: true,
			},
			{
				From:       entity.Collection,
				Field:      "items",
				To:         entity.Item,
				Many:       true,
				Deferrable: true,
				CountField: "itemCount",
			},
		},
		Enums: []string{"status"},
		Apply: func(b *Builder) {
			b.RequiredString("title", "name")
			b.String("source_language", "sourceLang")
			b.Strings("target_languages", "targetLangs")
			b.Time("due_date", "dueAt")
			b.TimeOrNow("created_at", "createdAt")
			b.Enum("status", "status")
			b.Ref("owner_id", "owner")
			b.Ref("segment_ids", "items")
		},
	}
}
