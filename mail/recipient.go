package mail

import (
	"maps"
	"slices"
)

// DefaultRole is the role used when a send names no recipient.
const DefaultRole = "default"

// RecipientSpec is either a SingleAddress or a RoleMap.
type RecipientSpec interface {
	isRecipientSpec()
}

// SingleAddress is one fixed recipient address.
type SingleAddress string

// RoleMap maps a logical role such as "default" or "admin" to an address.
type RoleMap map[string]string

func (SingleAddress) isRecipientSpec() {}
func (RoleMap) isRecipientSpec()       {}

// Lookup returns the address configured for role.
func (m RoleMap) Lookup(role string) (string, bool) {
	addr, ok := m[role]
	return addr, ok
}

// Roles returns the configured role names in sorted order.
func (m RoleMap) Roles() []string {
	return slices.Sorted(maps.Keys(m))
}

// Resolve returns the address a message should be sent to.
// A non-empty override always wins, otherwise the default recipient is used.
func (c *Config) Resolve(override string) (string, error) {
	if override != "" {
		if !IsValidEmail(override) {
			return "", NewError(KindInvalidOverrideRecipient, "", "invalid value for override recipient "+quote(override), nil)
		}
		return override, nil
	}

	if c.defaultRecipient == "" {
		return "", NewError(KindNoRecipientAvailable, "", ErrNoRecipientAvailable.Message, nil)
	}
	return c.defaultRecipient, nil
}

// ResolveRole returns the address configured for role.
// It fails with RoleNotConfigured when the recipient is a single address
// or the role map has no such role.
func (c *Config) ResolveRole(role string) (string, error) {
	roles, ok := c.recipients.(RoleMap)
	if !ok {
		return "", NewError(KindRoleNotConfigured, "", "recipient is a single address, role "+quote(role)+" is not configured", nil)
	}

	addr, ok := roles.Lookup(role)
	if !ok {
		return "", NewError(KindRoleNotConfigured, "", "role "+quote(role)+" is not configured", nil)
	}
	return addr, nil
}

// recipientFor resolves the address for msg: To, then Role, then the default.
func (c *Config) recipientFor(msg Message) (string, error) {
	if msg.To == "" && msg.Role != "" {
		return c.ResolveRole(msg.Role)
	}
	return c.Resolve(msg.To)
}
