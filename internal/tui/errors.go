package tui

import (
	"errors"
	"fmt"

	"github.com/pders01/ranobe/internal/api"
	"github.com/pders01/ranobe/internal/storage"
)

// wrapErr formats an error with a contextual prefix.
func wrapErr(context string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}

// isNotFound reports a page-level not-found outcome from either source.
func isNotFound(err error) bool {
	return errors.Is(err, api.ErrNotFound) || errors.Is(err, storage.ErrNotFound)
}
