package permission

import (
	"errors"
	"sort"
	"strings"
)

// All is the permission that grants every other permission.
const All = "*:*:*"

var errInvalidPermission = errors.New("permission must have three non-empty segments")

// Set is an immutable collection of permission strings.
type Set struct {
	all   bool
	perms map[string]struct{}
}

// NewSet builds a Set from perms. Blank entries are skipped.
func NewSet(perms ...string) Set {
	s := Set{perms: make(map[string]struct{}, len(perms))}
	for _, p := range perms {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if p == All {
			s.all = true
		}
		s.perms[p] = struct{}{}
	}
	return s
}

// Has reports whether perm is granted, either exactly or through All.
func (s Set) Has(perm string) bool {
	if s.all {
		return true
	}
	_, ok := s.perms[perm]
	return ok
}

// HasAny reports whether at least one of perms is granted.
func (s Set) HasAny(perms ...string) bool {
	for _, p := range perms {
		if s.Has(p) {
			return true
		}
	}
	return false
}

// IsAll reports whether the set carries the wildcard.
func (s Set) IsAll() bool {
	return s.all
}

// Len returns the number of distinct entries.
func (s Set) Len() int {
	return len(s.perms)
}

// Union returns a new Set holding the entries of s and o.
func (s Set) Union(o Set) Set {
	out := Set{all: s.all || o.all, perms: make(map[string]struct{}, len(s.perms)+len(o.perms))}
	for p := range s.perms {
		out.perms[p] = struct{}{}
	}
	for p := range o.perms {
		out.perms[p] = struct{}{}
	}
	return out
}

// List returns the entries sorted.
func (s Set) List() []string {
	out := make([]string, 0, len(s.perms))
	for p := range s.perms {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Validate checks that perm is a colon separated triple.
func Validate(perm string) error {
	parts := strings.Split(perm, ":")
	if len(parts) != 3 {
		return errInvalidPermission
	}
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			return errInvalidPermission
		}
	}
	return nil
}
