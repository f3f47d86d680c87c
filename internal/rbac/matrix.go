package rbac

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// FallbackRoute is the landing route for roles without an entry.
const FallbackRoute = "/"

type capability struct {
	Prefixes []string `yaml:"prefixes"`
	Default  string   `yaml:"default"`
}

// Matrix maps roles to the route prefixes they may open and their landing
// route. A Matrix is read-only once built.
type Matrix struct {
	entries map[Role]capability
}

// DefaultMatrix returns the built-in capability table.
func DefaultMatrix() *Matrix {
	admin := []string{"/admin", "/business", "/staff", "/customer", "/profile"}
	business := []string{"/business", "/staff", "/profile"}
	staff := []string{"/staff", "/profile", "/book"}
	customer := []string{"/customer", "/profile", "/book"}

	return &Matrix{entries: map[Role]capability{
		RoleSuperAdmin:    {Prefixes: append(append([]string{}, admin...), "/book"), Default: "/admin"},
		RolePlatformAdmin: {Prefixes: admin, Default: "/admin"},
		RoleTenantOwner:   {Prefixes: business, Default: "/business"},
		RoleSalonOwner:    {Prefixes: business, Default: "/business"},
		RoleSalonManager:  {Prefixes: []string{"/business", "/profile"}, Default: "/business"},
		RoleSeniorStaff:   {Prefixes: staff, Default: "/staff"},
		RoleStaff:         {Prefixes: staff, Default: "/staff"},
		RoleJuniorStaff:   {Prefixes: []string{"/staff", "/profile"}, Default: "/staff"},
		RoleVIPCustomer:   {Prefixes: customer, Default: "/customer"},
		RoleCustomer:      {Prefixes: customer, Default: "/customer"},
		RoleGuest:         {Prefixes: []string{"/customer", "/book"}, Default: "/explore"},
	}}
}

type matrixFile struct {
	Roles map[string]capability `yaml:"roles"`
}

// LoadMatrix reads overrides from a YAML file on top of the default table.
// An empty path yields the defaults.
func LoadMatrix(path string) (*Matrix, error) {
	m := DefaultMatrix()
	if path == "" {
		return m, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rbac: read matrix: %w", err)
	}
	var file matrixFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("rbac: parse matrix: %w", err)
	}
	for name, entry := range file.Roles {
		role, ok := ParseRole(name)
		if !ok {
			return nil, fmt.Errorf("rbac: matrix: unknown role %q", name)
		}
		for _, prefix := range entry.Prefixes {
			if !strings.HasPrefix(prefix, "/") {
				return nil, fmt.Errorf("rbac: matrix: %s: prefix %q must start with /", name, prefix)
			}
		}
		if entry.Default == "" {
			entry.Default = m.entries[role].Default
		}
		m.entries[role] = entry
	}
	return m, nil
}

// AllowedPrefixes returns a copy of the prefixes role may open.
func (m *Matrix) AllowedPrefixes(role Role) []string {
	entry, ok := m.entries[role]
	if !ok {
		return []string{}
	}
	out := make([]string, len(entry.Prefixes))
	copy(out, entry.Prefixes)
	return out
}

// DefaultRoute returns the landing route for role.
func (m *Matrix) DefaultRoute(role Role) string {
	entry, ok := m.entries[role]
	if !ok || entry.Default == "" {
		return FallbackRoute
	}
	return entry.Default
}

// CanAccessRoute reports whether route starts with any prefix allowed for role.
func (m *Matrix) CanAccessRoute(role Role, route string) bool {
	for _, prefix := range m.entries[role].Prefixes {
		if strings.HasPrefix(route, prefix) {
			return true
		}
	}
	return false
}
