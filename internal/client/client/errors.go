package client

import (
	"errors"

	"github.com/dmitrijs2005/gophstamp/internal/api"
)

var (
	ErrUnavailable = api.ErrUnavailable
	ErrNotLoggedIn = errors.New("not logged in")
)
