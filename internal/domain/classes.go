package domain

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed classes.yaml
var classesYAML []byte

// ClassTable maps a normalized class name to the roles it can play.
type ClassTable map[string][]Role

// Classes is the built-in table loaded from classes.yaml.
var Classes = mustLoadClasses(classesYAML)

type classFile struct {
	Classes map[string][]Role `yaml:"classes"`
}

// LoadClasses parses a class table document.
func LoadClasses(data []byte) (ClassTable, error) {
	var f classFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing class table: %w", err)
	}
	table := make(ClassTable, len(f.Classes))
	for name, roles := range f.Classes {
		for _, r := range roles {
			if !r.Valid() {
				return nil, fmt.Errorf("class %q: unknown role %q", name, r)
			}
		}
		table[classKey(name)] = roles
	}
	return table, nil
}

func mustLoadClasses(data []byte) ClassTable {
	table, err := LoadClasses(data)
	if err != nil {
		panic(err)
	}
	return table
}

// Allows returns an error naming the first role the class cannot play.
func (t ClassTable) Allows(class string, roles []Role) error {
	allowed, ok := t[classKey(class)]
	if !ok {
		return fmt.Errorf("unknown class %q", class)
	}
	for _, r := range roles {
		if !containsRole(allowed, r) {
			return fmt.Errorf("%s is not a valid role for %s (allowed: %s)", r.Label(), class, joinRoles(allowed))
		}
	}
	return nil
}

// Names lists the known classes in alphabetical order.
func (t ClassTable) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// classKey folds case, hyphens and underscores so "Death_Knight",
// "death-knight" and "Death Knight" resolve to the same entry.
func classKey(name string) string {
	fields := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return r == ' ' || r == '-' || r == '_'
	})
	return strings.Join(fields, " ")
}

func containsRole(roles []Role, r Role) bool {
	for _, x := range roles {
		if x == r {
			return true
		}
	}
	return false
}

func joinRoles(roles []Role) string {
	parts := make([]string, len(roles))
	for i, r := range roles {
		parts[i] = r.Label()
	}
	return strings.Join(parts, ", ")
}
