package transform

import (
	"github.com/tmforge/tmmigrate/pkg/entity"
	"github.com/tmforge/tmmigrate/pkg/plan"
)

func reviewRule() Rule {
	return Rule{
		Type: entity.Review,
		Relations: []plan.Relation{
			{From: entity.Review, Field: "item", To: entity.Item, Required: true},
			{
				From:     entity.Review,
				Field:    "reviewer",
				To:       entity.Account,
				Required: true,
			},
		},
		Enums: []string{"verdict"},
		Apply: func(b *Builder) {
			b.String("comment", "comment")
			if score, ok := b.Int("score", "score"); ok {
				b.Set("score", min(max(score, 0), 100))
			}
			b.Enum("verdict", "verdict")
			b.TimeOrNow("created_at", "createdAt")
			b.Ref("segment_id", "item")
			b.Ref("reviewer_id", "reviewer")
		},
	}
}
