package client

import (
	"errors"

	"github.com/dmitrijs2005/fieldsync/internal/common"
)

var (
	// ErrUnavailable is common.ErrRemoteUnavailable so that layers which
	// do not know this package can still classify transport failures.
	ErrUnavailable  = common.ErrRemoteUnavailable
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotSignedIn  = errors.New("not signed in")
)
