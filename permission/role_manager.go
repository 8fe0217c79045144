package permission

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrFrozen is returned by RegisterRole after Freeze.
	ErrFrozen = errors.New("role table frozen")
	// ErrDuplicateRole is returned when a role key is registered twice.
	ErrDuplicateRole = errors.New("role already registered")
)

// RoleManager maps role keys to permission sets. The mock backend builds a
// fresh one whenever roles change and freezes it before publishing.
type RoleManager struct {
	mu     sync.RWMutex
	roles  map[string]Set
	frozen bool
}

func NewRoleManager() *RoleManager {
	return &RoleManager{roles: make(map[string]Set)}
}

// RegisterRole adds roleKey with the given permissions. Every permission
// other than [All] must be a valid triple.
func (rm *RoleManager) RegisterRole(roleKey string, permissionNames []string) error {
	if roleKey == "" {
		return errors.New("role key empty")
	}
	for _, perm := range permissionNames {
		if perm == All {
			continue
		}
		if err := Validate(perm); err != nil {
			return fmt.Errorf("role %s: %w", roleKey, err)
		}
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.frozen {
		return ErrFrozen
	}
	if _, exists := rm.roles[roleKey]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateRole, roleKey)
	}
	rm.roles[roleKey] = NewSet(permissionNames...)
	return nil
}

/*
====================================
RESOLVE ROLES
*/

// Role returns the permission set registered for roleKey.
func (rm *RoleManager) Role(roleKey string) (Set, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	set, ok := rm.roles[roleKey]
	return set, ok
}

// Resolve returns the union of the permission sets of roleKeys. Unknown
// roles contribute nothing.
func (rm *RoleManager) Resolve(roleKeys ...string) Set {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	out := NewSet()
	for _, key := range roleKeys {
		if set, ok := rm.roles[key]; ok {
			out = out.Union(set)
		}
	}
	return out
}

// Freeze rejects further registrations.
func (rm *RoleManager) Freeze() {
	rm.mu.Lock()
	rm.frozen = true
	rm.mu.Unlock()
}

// Count returns the number of registered roles.
func (rm *RoleManager) Count() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.roles)
}
