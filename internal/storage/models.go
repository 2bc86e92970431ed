package storage

import (
	"time"

	"github.com/suspectuso/parqr-companion/internal/features"
	"github.com/suspectuso/parqr-companion/internal/identity"
)

// Link binds a Telegram chat to a parQR account
type Link struct {
	ChatID    int64
	UserCode  identity.Identity
	Tier      features.Tier
	LinkedAt  time.Time
	UpdatedAt time.Time
}

// Scan is a successfully resolved scan, kept for the /recent list
type Scan struct {
	ChatID    int64
	UserCode  identity.Identity
	Encoding  identity.Encoding
	ScannedAt time.Time
}
