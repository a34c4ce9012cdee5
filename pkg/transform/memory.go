package transform

import (
	"github.com/tmforge/tmmigrate/pkg/entity"
	"github.com/tmforge/tmmigrate/pkg/plan"
)

func memoryEntryRule() Rule {
	return Rule{
		Type: entity.MemoryEntry,
		Relations: []plan.Relation{
			{From: entity.MemoryEntry, Field: "collection", To: entity.Collection},
			{From: entity.MemoryEntry, Field: "author", To: entity.Account},
		},
		Enums: []string{"origin"},
		Apply: func(b *Builder) {
			src := b.RequiredString("source_text", "sourceText")
			b.RequiredString("target_text", "targetText")
			b.String("source_lang", "sourceLang")
			b.String("target_lang", "targetLang")
			b.Enum("origin", "origin")
			b.TimeOrNow("created_at", "createdAt")
			b.Ref("project_id", "collection")
			b.Ref("author_id", "author")
			b.Set("wordCount", wordCount(src))
		},
	}
}
