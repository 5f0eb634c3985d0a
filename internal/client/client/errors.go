package client

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophfocus/internal/common"
)

var (
	ErrUnavailable           = fmt.Errorf("server unavailable: %w", common.ErrorUnavailable)
	ErrUnauthorized          = fmt.Errorf("server rejected credentials: %w", common.ErrorUnauthorized)
	ErrLocalDataNotAvailable = errors.New("local data unavailable")
)
