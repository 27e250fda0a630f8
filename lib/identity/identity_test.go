// Copyright 2026 The Revfs Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"os"
	"os/user"
	"strconv"
	"testing"
)

func TestStatic(t *testing.T) {
	resolver := Static{
		Users:  map[uint32]string{1000: "alice"},
		Groups: map[uint32]string{100: "users"},
	}
	if got := resolver.UserName(1000); got != "alice" {
		t.Errorf("UserName(1000) = %q", got)
	}
	if got := resolver.UserName(4242); got != "4242" {
		t.Errorf("UserName(4242) = %q, want numeric fallback", got)
	}
	if got := resolver.GroupName(100); got != "users" {
		t.Errorf("GroupName(100) = %q", got)
	}
	if got := resolver.GroupName(7); got != "7" {
		t.Errorf("GroupName(7) = %q, want numeric fallback", got)
	}
}

func TestSystem_CurrentUser(t *testing.T) {
	current, err := user.Current()
	if err != nil {
		t.Skipf("no user database: %v", err)
	}
	resolver := System()
	uid := uint32(os.Getuid())
	if got := resolver.UserName(uid); got != current.Username {
		t.Errorf("UserName(%d) = %q, want %q", uid, got, current.Username)
	}
	// Second lookup is served from the cache.
	if got := resolver.UserName(uid); got != current.Username {
		t.Errorf("cached UserName(%d) = %q, want %q", uid, got, current.Username)
	}
}

func TestSystem_UnknownIDFallsBack(t *testing.T) {
	const unknown = 3999999999
	resolver := System()
	if got := resolver.UserName(unknown); got != strconv.Itoa(unknown) {
		t.Errorf("UserName(unknown) = %q", got)
	}
	if got := resolver.GroupName(unknown); got != strconv.Itoa(unknown) {
		t.Errorf("GroupName(unknown) = %q", got)
	}
}
