//revive:disable-next-line:var-naming // Package name "types" avoids circular imports.
package types

import "fmt"

// Isolation is a transaction isolation level. The ordering of the constants
// matters: a live connection may only move to a higher level, never a lower
// one, so comparisons between levels use the ordinal value directly.
type Isolation int

const (
	ReadUncommitted Isolation = iota
	ReadCommitted
	RepeatableRead
	Serializable
)

// String returns the canonical lowercase name of the level.
func (i Isolation) String() string {
	switch i {
	case ReadUncommitted:
		return "read-uncommitted"
	case ReadCommitted:
		return "read-committed"
	case RepeatableRead:
		return "repeatable-read"
	case Serializable:
		return "serializable"
	default:
		return fmt.Sprintf("isolation(%d)", int(i))
	}
}

// ParseIsolation converts a canonical level name into an Isolation.
func ParseIsolation(s string) (Isolation, error) {
	switch s {
	case "read-uncommitted":
		return ReadUncommitted, nil
	case "read-committed":
		return ReadCommitted, nil
	case "repeatable-read":
		return RepeatableRead, nil
	case "serializable":
		return Serializable, nil
	default:
		return ReadCommitted, fmt.Errorf("unknown isolation level: %q", s)
	}
}
