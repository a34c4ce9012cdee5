package transform

import (
	"strings"

	"github.com/tmforge/tmmigrate/pkg/entity"
	"github.com/tmforge/tmmigrate/pkg/plan"
)

func itemRule() Rule {
	return Rule{
		Type: entity.Item,
		Relations: []plan.Relation{
			{
				From:     entity.Item,
				Field:    "collection",
				To:       entity.Collection,
				Required: true,
			},
			{From: entity.Item, Field: "assignee", To: entity.Account},
		},
		Enums: []string{"status"},
		Apply: func(b *Builder) {
			src := b.RequiredString("source", "sourceText")
			b.String("target", "targetText")
			if _, ok := b.Int("position", "position"); !ok {
				b.Set("position", 0)
			}
			b.Enum("status", "status")
			b.TimeOrNow("created_at", "createdAt")
			b.Ref("project_id", "collection")
			b.Ref("assignee_id", "assignee")
			b.Set("wordCount", wordCount(src))
		},
	}
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
