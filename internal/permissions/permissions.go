// Package permissions answers whether a user may run a business command.
package permissions

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Checker is the boolean permission check consumed at dispatch time.
type Checker interface {
	HasPermission(ctx context.Context, userID, permission string) (bool, error)
}

// AllowAll grants everything. Useful for local runs.
type AllowAll struct{}

// HasPermission always returns true.
func (AllowAll) HasPermission(context.Context, string, string) (bool, error) { return true, nil }

// Policy maps users to roles and roles to grants. A grant of "*" allows
// everything and "sales.*" allows every key under "sales.".
type Policy struct {
	DefaultRole string              `yaml:"default_role"`
	Roles       map[string][]string `yaml:"roles"`
	Users       map[string][]string `yaml:"users"`
}

// LoadPolicy reads a YAML policy file.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read permissions file: %w", err)
	}
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse permissions file: %w", err)
	}
	for user, roles := range p.Users {
		for _, r := range roles {
			if _, ok := p.Roles[r]; !ok {
				return nil, fmt.Errorf("user %s references unknown role %s", user, r)
			}
		}
	}
	return &p, nil
}

// HasPermission checks the user's roles, falling back to DefaultRole for
// unknown users.
func (p *Policy) HasPermission(ctx context.Context, userID, permission string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	roles, ok := p.Users[userID]
	if !ok && p.DefaultRole != "" {
		roles = []string{p.DefaultRole}
	}
	for _, r := range roles {
		for _, grant := range p.Roles[r] {
			if grantAllows(grant, permission) {
				return true, nil
			}
		}
	}
	return false, nil
}

func grantAllows(grant, permission string) bool {
	switch {
	case grant == "*":
		return true
	case strings.HasSuffix(grant, ".*"):
		return strings.HasPrefix(permission, strings.TrimSuffix(grant, "*"))
	default:
		return grant == permission
	}
}
