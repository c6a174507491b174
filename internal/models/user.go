package models

import "time"

// User is the subscription record for a single account, keyed by the
// identity token the upstream echoes back as userToken.
type User struct {
	ID string `json:"id"`

	// VerifyToken is set when the subscription is created and only read by
	// the notification pipeline.
	VerifyToken string `json:"-"`

	Latitude       *float64   `json:"latitude,omitempty"`
	Longitude      *float64   `json:"longitude,omitempty"`
	LocationUpdate *time.Time `json:"location_update,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasLocation reports whether a location has ever been stored.
func (u *User) HasLocation() bool {
	return u.Latitude != nil && u.Longitude != nil
}

// Location is a coordinate pair applied to a user record.
type Location struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Credential is the stored OAuth access token for a user. Acquisition and
// refresh happen elsewhere; the notify service only reads it.
type Credential struct {
	UserID      string     `json:"user_id"`
	AccessToken string     `json:"-"`
	TokenType   string     `json:"token_type"`
	Expiry      *time.Time `json:"expiry,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
