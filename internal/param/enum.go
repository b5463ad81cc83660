package param

import "strings"

// EnumEntry is one named constant of an enumerated parameter.
type EnumEntry struct {
	Name string
	Code int32
}

// EnumTable maps enumerated constant names to codes in declaration order.
type EnumTable struct {
	entries []EnumEntry
}

// NewEnumTable builds a table from entries. Later duplicates of a name or
// code are ignored.
func NewEnumTable(entries ...EnumEntry) *EnumTable {
	t := &EnumTable{}
	for _, e := range entries {
		if _, dup := t.Code(e.Name); dup {
			continue
		}
		if _, dup := t.Name(e.Code); dup {
			continue
		}
		t.entries = append(t.entries, e)
	}
	return t
}

// Name returns the constant name for code.
func (t *EnumTable) Name(code int32) (string, bool) {
	for _, e := range t.entries {
		if e.Code == code {
			return e.Name, true
		}
	}
	return "", false
}

// Code returns the code for name. An exact match wins over a
// case-insensitive one.
func (t *EnumTable) Code(name string) (int32, bool) {
	for _, e := range t.entries {
		if e.Name == name {
			return e.Code, true
		}
	}
	for _, e := range t.entries {
		if strings.EqualFold(e.Name, name) {
			return e.Code, true
		}
	}
	return 0, false
}

// Names returns the constant names in declaration order.
func (t *EnumTable) Names() []string {
	names := make([]string, len(t.entries))
	for i, e := range t.entries {
		names[i] = e.Name
	}
	return names
}

// Len returns the number of constants.
func (t *EnumTable) Len() int {
	return len(t.entries)
}
