package instruments

import (
	"time"

	"github.com/google/uuid"
)

// Role is a logical tracking slot. Exactly one contract is bound to each
// role at any time; reselection rebinds roles, it never grows the set.
type Role string

const (
	RoleNearestOTMCall Role = "nearest_otm_call"
	RoleNearestOTMPut  Role = "nearest_otm_put"
)

// Roles lists every slot the engine maintains.
var Roles = []Role{RoleNearestOTMCall, RoleNearestOTMPut}

// Binding ties a role to a contract as of UpdatedAt.
type Binding struct {
	Role      Role           `json:"role"`
	Contract  OptionContract `json:"contract"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// TrackedSet is the full role -> contract mapping. It is replaced as a whole
// by the switch procedure and never mutated role by role.
type TrackedSet struct {
	bindings map[Role]Binding
}

// NewTrackedSet builds a set from bindings. Later duplicates of a role win.
func NewTrackedSet(bindings ...Binding) *TrackedSet {
	m := make(map[Role]Binding, len(bindings))
	for _, b := range bindings {
		m[b.Role] = b
	}
	return &TrackedSet{bindings: m}
}

// Contract returns the contract bound to role.
func (s *TrackedSet) Contract(role Role) (OptionContract, bool) {
	b, ok := s.bindings[role]
	return b.Contract, ok
}

// Bindings returns the bindings in stable role order.
func (s *TrackedSet) Bindings() []Binding {
	out := make([]Binding, 0, len(s.bindings))
	for _, role := range Roles {
		if b, ok := s.bindings[role]; ok {
			out = append(out, b)
		}
	}
	return out
}

// UIDs returns the instrument ids of every bound contract in role order.
func (s *TrackedSet) UIDs() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(s.bindings))
	for _, b := range s.Bindings() {
		out = append(out, b.Contract.UID)
	}
	return out
}

// Matches reports whether the set binds exactly the desired contracts.
func (s *TrackedSet) Matches(desired map[Role]OptionContract) bool {
	if len(s.bindings) != len(desired) {
		return false
	}
	for role, want := range desired {
		b, ok := s.bindings[role]
		if !ok || b.Contract.UID != want.UID {
			return false
		}
	}
	return true
}
