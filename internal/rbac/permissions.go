package rbac

import (
	"encoding/json"
	"slices"
	"strings"

	"golang.org/x/text/cases"
)

// normalizePermission trims and case folds p. Casers are stateful, so each
// call gets its own.
func normalizePermission(p string) string {
	return cases.Fold().String(strings.TrimSpace(p))
}

// PermissionSet is an order-irrelevant set of fine-grained permissions.
// An empty set means every permission implied by the role.
type PermissionSet struct {
	items []string
}

// NewPermissionSet normalizes perms: trims, case folds, drops blanks and duplicates.
func NewPermissionSet(perms ...string) PermissionSet {
	if len(perms) == 0 {
		return PermissionSet{}
	}
	items := make([]string, 0, len(perms))
	for _, p := range perms {
		p = normalizePermission(p)
		if p == "" {
			continue
		}
		items = append(items, p)
	}
	slices.Sort(items)
	items = slices.Compact(items)
	if len(items) == 0 {
		return PermissionSet{}
	}
	return PermissionSet{items: items}
}

// Equal compares two sets by membership.
func (s PermissionSet) Equal(other PermissionSet) bool {
	return slices.Equal(s.items, other.items)
}

// Contains reports if perm is granted. Empty sets grant everything.
func (s PermissionSet) Contains(perm string) bool {
	if s.ImpliesAll() {
		return true
	}
	_, found := slices.BinarySearch(s.items, normalizePermission(perm))
	return found
}

// ImpliesAll reports whether the set defers to the role defaults.
func (s PermissionSet) ImpliesAll() bool {
	return len(s.items) == 0
}

// Len returns the number of explicit permissions.
func (s PermissionSet) Len() int { return len(s.items) }

// Slice returns a sorted copy of the members.
func (s PermissionSet) Slice() []string {
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}

// MarshalJSON encodes the set as a sorted array.
func (s PermissionSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Slice())
}

// UnmarshalJSON decodes and normalizes an array of strings.
func (s *PermissionSet) UnmarshalJSON(data []byte) error {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = NewPermissionSet(raw...)
	return nil
}
