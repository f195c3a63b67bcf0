package domain

import (
	apperrors "github.com/utafrali/storescope/pkg/errors"
)

// Store identifies one of the two upstream app marketplaces. Every adapter
// call carries it explicitly; it is never inferred from the shape of the data.
type Store string

const (
	AppStore  Store = "appstore"
	PlayStore Store = "playstore"
)

// ParseStore validates a store path parameter.
func ParseStore(s string) (Store, error) {
	switch Store(s) {
	case AppStore, PlayStore:
		return Store(s), nil
	default:
		return "", apperrors.InvalidInput("invalid store specified, must be 'appstore' or 'playstore'")
	}
}

// Valid reports whether the store is one of the two known marketplaces.
func (s Store) Valid() bool {
	return s == AppStore || s == PlayStore
}

func (s Store) String() string {
	return string(s)
}
