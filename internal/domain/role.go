package domain

import (
	"fmt"
	"strings"
)

// Role is a slot type in a run's roster.
type Role string

const (
	RoleTank   Role = "tank"
	RoleHealer Role = "healer"
	RoleDPS    Role = "dps"
)

// Roster composition: one tank, one healer, three dps.
const (
	TeamSize = 5
	DPSSlots = 3
)

// Roles lists every role in roster order.
var Roles = []Role{RoleTank, RoleHealer, RoleDPS}

// ParseRole accepts a role name in any case.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

func (r Role) Valid() bool {
	switch r {
	case RoleTank, RoleHealer, RoleDPS:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

// Label is the display form used in messages.
func (r Role) Label() string {
	switch r {
	case RoleDPS:
		return "DPS"
	case RoleTank:
		return "Tank"
	case RoleHealer:
		return "Healer"
	}
	return string(r)
}

func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
