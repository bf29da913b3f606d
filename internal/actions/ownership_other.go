//go:build !unix

package actions

import "errors"

func ownershipMatches(path, owner, group string) (bool, error) {
	return false, errors.New("ownership management requires a Unix host")
}

func applyOwnership(path, owner, group string) error {
	if owner == "" && group == "" {
		return nil
	}
	return errors.New("ownership management requires a Unix host")
}
