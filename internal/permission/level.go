package permission

import (
	"fmt"
	"strings"
)

// Level is the access level an admin holds on a resource.
type Level string

const (
	// NoAccess denies every operation on the resource.
	NoAccess Level = "none"
	// ReadOnly allows viewing but no mutation.
	ReadOnly Level = "read"
	// FullControl allows every operation on the resource.
	FullControl Level = "full"
	// Restricted is a narrower operational grant: it includes viewing and a
	// limited set of mutations, but not full control.
	Restricted Level = "restricted"
)

// Levels lists every valid level.
func Levels() []Level {
	return []Level{NoAccess, ReadOnly, FullControl, Restricted}
}

// ParseLevel converts a string into a Level.
func ParseLevel(value string) (Level, error) {
	switch Level(strings.TrimSpace(strings.ToLower(value))) {
	case NoAccess:
		return NoAccess, nil
	case ReadOnly:
		return ReadOnly, nil
	case FullControl:
		return FullControl, nil
	case Restricted:
		return Restricted, nil
	}
	return NoAccess, fmt.Errorf("permission: unknown level %q", value)
}

// Valid reports whether l is one of the defined levels.
func (l Level) Valid() bool {
	switch l {
	case NoAccess, ReadOnly, FullControl, Restricted:
		return true
	}
	return false
}

// satisfiesTable pins the level relation down explicitly. Levels are not a
// linear scale: Restricted sits beside FullControl, not above or below it.
// The Restricted rows await product confirmation; see DESIGN.md.
var satisfiesTable = map[Level]map[Level]bool{
	NoAccess: {
		NoAccess:    true,
		ReadOnly:    true,
		FullControl: true,
		Restricted:  true,
	},
	ReadOnly: {
		NoAccess:    false,
		ReadOnly:    true,
		FullControl: true,
		Restricted:  true,
	},
	FullControl: {
		NoAccess:    false,
		ReadOnly:    false,
		FullControl: true,
		Restricted:  false,
	},
	Restricted: {
		NoAccess:    false,
		ReadOnly:    false,
		FullControl: true,
		Restricted:  true,
	},
}

// Satisfies reports whether a grant of level granted meets a requirement of
// level required. Unknown levels never satisfy anything.
func Satisfies(required, granted Level) bool {
	row, ok := satisfiesTable[required]
	if !ok {
		return false
	}
	return row[granted]
}
