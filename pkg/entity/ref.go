package entity

// RefState tells if a reference is usable as is.
type RefState int

const (
	// RefNull is an absent reference.
	RefNull RefState = iota
	// RefResolved carries new keys of the target store.
	RefResolved
	// RefPending carries old keys that are resolved by the patch pass.
	RefPending
)

func (s RefState) String() string {
	switch s {
	case RefResolved:
		return "resolved"
	case RefPending:
		return "pending"
	}
	return "null"
}

// Ref is a tagged foreign-key value. Keys are new keys when the state is
// RefResolved and old keys when it is RefPending.
type Ref struct {
	State RefState
	Keys  []string
	Many  bool
}

// Resolved creates a reference to already written records.
func Resolved(keys ...string) Ref {
	return Ref{State: RefResolved, Keys: keys, Many: len(keys) != 1}
}

// Pending creates a reference that waits for the patch pass.
func Pending(oldKeys ...string) Ref {
	return Ref{State: RefPending, Keys: oldKeys, Many: len(oldKeys) != 1}
}

// Null creates an absent reference.
func Null() Ref {
	return Ref{State: RefNull}
}

// AsMany marks the reference as list-valued.
func (r Ref) AsMany() Ref {
	r.Many = true
	return r
}

// AsOne marks the reference as single-valued.
func (r Ref) AsOne() Ref {
	r.Many = false
	return r
}

// Value is the stored form of the reference. Pending references are stored
// empty: nil for a single value and an empty list for many.
func (r Ref) Value() any {
	if r.Many {
		if r.State != RefResolved {
			return []string{}
		}
		return append([]string{}, r.Keys...)
	}
	if r.State != RefResolved || len(r.Keys) == 0 {
		return nil
	}
	return r.Keys[0]
}
