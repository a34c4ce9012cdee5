package transform

import (
	"strings"

	"github.com/tmforge/tmmigrate/pkg/entity"
)

// EnumTable is a closed lookup table of a legacy enum field.
type EnumTable struct {
	// Default is used for missing and unknown values.
	Default string
	// Values maps normalized legacy values to new values.
	Values map[string]string
}

// Map returns the new value of a legacy value. Unknown values never pass
// through.
func (e EnumTable) Map(s string) string {
	if res, ok := e.Values[normalizeEnum(s)]; ok {
		return res
	}
	return e.Default
}

func normalizeEnum(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("-", "_", " ", "_").Replace(s)
}

type enumKey struct {
	Type  entity.Type
	Field string
}

func defaultEnums() map[enumKey]EnumTable {
	return map[enumKey]EnumTable{
		{entity.Account, "role"}: {
			Default: "translator",
			Values: map[string]string{
				"admin":           "admin",
				"administrator":   "admin",
				"superuser":       "admin",
				"manager":         "manager",
				"project_manager": "manager",
				"pm":              "manager",
				"translator":      "translator",
				"linguist":        "translator",
				"reviewer":        "reviewer",
				"proofreader":     "reviewer",
			},
		},
		{entity.Collection, "status"}: {
			Default: "draft",
			Values: map[string]string{
				"draft":       "draft",
				"new":         "draft",
				"active":      "active",
				"open":        "active",
				"in_progress": "active",
				"completed":   "completed",
				"complete":    "completed",
				"done":        "completed",
				"finished":    "completed",
				"archived":    "archived",
				"closed":      "archived",
			},
		},
		{entity.Item, "status"}: {
			Default: "new",
			Values: map[string]string{
				"new":          "new",
				"untranslated": "new",
				"in_progress":  "in_progress",
				"draft":        "in_progress",
				"translated":   "translated",
				"approved":     "approved",
				"confirmed":    "approved",
				"locked":       "locked",
			},
		},
		{entity.Review, "verdict"}: {
			Default: "pending",
			Values: map[string]string{
				"pending":           "pending",
				"open":              "pending",
				"approved":          "approved",
				"accepted":          "approved",
				"accept":            "approved",
				"pass":              "approved",
				"rejected":          "rejected",
				"reject":            "rejected",
				"fail":              "rejected",
				"changes_requested": "changes_requested",
				"needs_work":        "changes_requested",
			},
		},
		{entity.MemoryEntry, "origin"}: {
			Default: "human",
			Values: map[string]string{
				"human":               "human",
				"manual":              "human",
				"machine":             "machine",
				"mt":                  "machine",
				"machine_translation": "machine",
				"imported":            "imported",
				"import":              "imported",
				"tmx":                 "imported",
			},
		},
	}
}
