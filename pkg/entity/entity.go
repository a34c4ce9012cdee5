// Package entity describes the records moved by tmmigrate: raw source
// records, transformed target documents and their references.
package entity

import (
	"slices"
)

// Type is the name of an entity type.
type Type string

const (
	Account     Type = "account"
	Collection  Type = "collection"
	Item        Type = "item"
	Review      Type = "review"
	MemoryEntry Type = "memory_entry"
)

// Types returns all entity types known to tmmigrate, sorted by name.
func Types() []Type {
	return []Type{Account, Collection, Item, MemoryEntry, Review}
}

// ParseType converts a string to a known Type.
func ParseType(s string) (Type, bool) {
	t := Type(s)
	return t, slices.Contains(Types(), t)
}

// SourceCollection is the name of the legacy collection (or dump
// collection) that holds records of the type.
func (t Type) SourceCollection() string {
	switch t {
	case Account:
		return "users"
	case Collection:
		return "projects"
	case Item:
		return "segments"
	case Review:
		return "reviews"
	case MemoryEntry:
		return "tm_entries"
	}
	return string(t)
}

// TargetCollection is the name of the collection in the new store.
func (t Type) TargetCollection() string {
	switch t {
	case Account:
		return "accounts"
	case Collection:
		return "collections"
	case Item:
		return "items"
	case Review:
		return "reviews"
	case MemoryEntry:
		return "memory_entries"
	}
	return string(t)
}

// Record is one raw source document.
type Record struct {
	Type Type
	// Key is the opaque string identifier of the legacy store.
	Key    string
	Fields map[string]any
}

// Document is a transformed record ready for the target store.
type Document struct {
	// Fields holds plain values.
	Fields map[string]any

	// Refs holds every foreign-key field.
	Refs map[string]Ref

	// Dangling lists reference fields whose old keys had no mapping.
	Dangling []string
}

// NewDocument returns an empty Document.
func NewDocument() Document {
	return Document{
		Fields: make(map[string]any),
		Refs:   make(map[string]Ref),
	}
}

// Pending returns reference fields that still wait for the patch pass,
// sorted by name.
func (d Document) Pending() []string {
	var res []string
	for k, v := range d.Refs {
		if v.State == RefPending {
			res = append(res, k)
		}
	}
	slices.Sort(res)
	return res
}

// DeferredRef is a reference field that is filled in after all stages
// are written.
type DeferredRef struct {
	Type    Type     `yaml:"type"`
	NewKey  string   `yaml:"new_key"`
	Field   string   `yaml:"field"`
	OldKeys []string `yaml:"old_keys"`
	RefType Type     `yaml:"ref_type"`
	Many    bool     `yaml:"many"`
}

// ID identifies the (record, field) slot the reference belongs to.
func (d DeferredRef) ID() string {
	return string(d.Type) + "|" + d.NewKey + "|" + d.Field
}
