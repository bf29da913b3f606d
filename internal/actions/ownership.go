//go:build unix

package actions

import (
	"fmt"
	"os"
	"os/user"
	"strconv"
	"syscall"
)

// ownershipMatches reports whether path is owned by the named user/group.
// Empty names match anything.
func ownershipMatches(path, owner, group string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return false, fmt.Errorf("ownership not inspectable on this platform")
	}
	if owner != "" {
		uid, err := lookupUID(owner)
		if err != nil {
			return false, err
		}
		if uid != int(st.Uid) {
			return false, nil
		}
	}
	if group != "" {
		gid, err := lookupGID(group)
		if err != nil {
			return false, err
		}
		if gid != int(st.Gid) {
			return false, nil
		}
	}
	return true, nil
}

// applyOwnership chowns path to the named user/group. Empty names leave the
// corresponding id unchanged.
func applyOwnership(path, owner, group string) error {
	if owner == "" && group == "" {
		return nil
	}
	uid, gid := -1, -1
	var err error
	if owner != "" {
		if uid, err = lookupUID(owner); err != nil {
			return err
		}
	}
	if group != "" {
		if gid, err = lookupGID(group); err != nil {
			return err
		}
	}
	if err := os.Chown(path, uid, gid); err != nil {
		return fmt.Errorf("chown %s: %w", path, err)
	}
	return nil
}

func lookupUID(name string) (int, error) {
	u, err := user.Lookup(name)
	if err != nil {
		return 0, fmt.Errorf("lookup user %q: %w", name, err)
	}
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return 0, fmt.Errorf("non-numeric uid for %q: %w", name, err)
	}
	return uid, nil
}

func lookupGID(name string) (int, error) {
	g, err := user.LookupGroup(name)
	if err != nil {
		return 0, fmt.Errorf("lookup group %q: %w", name, err)
	}
	gid, err := strconv.Atoi(g.Gid)
	if err != nil {
		return 0, fmt.Errorf("non-numeric gid for %q: %w", name, err)
	}
	return gid, nil
}
