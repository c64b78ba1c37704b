/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"fmt"
	"regexp"
	"strings"
)

// Macro names available to every index map template.
const (
	MacroCollection = "Collection"
	MacroID         = "ID"
)

// Attribute names of the default single-table layout.
const (
	AttrPK     = "PK"
	AttrSK     = "SK"
	AttrGSI1PK = "GSI1PK"
	AttrGSI1SK = "GSI1SK"
)

var macroPattern = regexp.MustCompile(`{([^}]+)}`)

// DefaultIndexMap lays a collection out in a single table: the primary key
// addresses one record and GSI1 partitions records by collection, sorted by
// identifier.
func DefaultIndexMap() map[string]string {
	return map[string]string{
		AttrPK:     "{Collection}#{ID}",
		AttrSK:     "{Collection}#{ID}",
		AttrGSI1PK: "{Collection}",
		AttrGSI1SK: "{ID}",
	}
}

// ValidateIndexMap checks that an index map can address records and
// partition the secondary index by collection.
func ValidateIndexMap(m map[string]string) error {
	for _, attr := range []string{AttrPK, AttrSK, AttrGSI1PK, AttrGSI1SK} {
		if _, ok := m[attr]; !ok {
			return fmt.Errorf("index map is missing %s", attr)
		}
	}
	for _, attr := range []string{AttrPK, AttrSK} {
		if !containsMacro(m[attr], MacroID) {
			return fmt.Errorf("index map %s template %q must reference {%s}", attr, m[attr], MacroID)
		}
	}
	for _, name := range Macros(m[AttrGSI1PK]) {
		if name != MacroCollection {
			return fmt.Errorf("index map %s template %q may only reference {%s}", AttrGSI1PK, m[AttrGSI1PK], MacroCollection)
		}
	}
	return nil
}

// Macros returns the macro names referenced by template, in order.
func Macros(template string) []string {
	var names []string
	for _, m := range macroPattern.FindAllStringSubmatch(template, -1) {
		names = append(names, m[1])
	}
	return names
}

// Expand replaces every {Name} macro in template with values[Name].
// Unknown macros expand to the empty string.
func Expand(template string, values map[string]string) string {
	return macroPattern.ReplaceAllStringFunc(template, func(macro string) string {
		return values[strings.Trim(macro, "{}")]
	})
}

// ExpandAll expands every template of an index map.
func ExpandAll(m map[string]string, values map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for attr, template := range m {
		out[attr] = Expand(template, values)
	}
	return out
}

func containsMacro(template, name string) bool {
	for _, n := range Macros(template) {
		if n == name {
			return true
		}
	}
	return false
}
