// Copyright 2026 The Revfs Authors
// SPDX-License-Identifier: Apache-2.0

// Package identity resolves numeric user and group ids to names. The
// dispatcher uses it to author revisions as the calling user and to
// record owner and group names alongside numeric ids.
package identity

import (
	"os/user"
	"strconv"
	"sync"
)

// Resolver maps numeric ids to names. Implementations never fail: an
// id with no name resolves to its decimal form.
type Resolver interface {
	UserName(uid uint32) string
	GroupName(gid uint32) string
}

// System returns a Resolver backed by the host user database. Lookups
// are cached for the life of the resolver.
func System() Resolver {
	return &systemResolver{
		users:  make(map[uint32]string),
		groups: make(map[uint32]string),
	}
}

type systemResolver struct {
	mu     sync.Mutex
	users  map[uint32]string
	groups map[uint32]string
}

func (r *systemResolver) UserName(uid uint32) string {
	return r.cached(r.users, uid, func(id string) (string, error) {
		u, err := user.LookupId(id)
		if err != nil {
			return "", err
		}
		return u.Username, nil
	})
}

func (r *systemResolver) GroupName(gid uint32) string {
	return r.cached(r.groups, gid, func(id string) (string, error) {
		g, err := user.LookupGroupId(id)
		if err != nil {
			return "", err
		}
		return g.Name, nil
	})
}

func (r *systemResolver) cached(cache map[uint32]string, id uint32, lookup func(string) (string, error)) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if name, ok := cache[id]; ok {
		return name
	}
	numeric := strconv.FormatUint(uint64(id), 10)
	name, err := lookup(numeric)
	if err != nil || name == "" {
		name = numeric
	}
	cache[id] = name
	return name
}

// Static is a fixed Resolver, for tests and for hosts without a user
// database. Missing ids resolve to their decimal form.
type Static struct {
	Users  map[uint32]string
	Groups map[uint32]string
}

// UserName implements Resolver.
func (s Static) UserName(uid uint32) string {
	if name, ok := s.Users[uid]; ok {
		return name
	}
	return strconv.FormatUint(uint64(uid), 10)
}

// GroupName implements Resolver.
func (s Static) GroupName(gid uint32) string {
	if name, ok := s.Groups[gid]; ok {
		return name
	}
	return strconv.FormatUint(uint64(gid), 10)
}
