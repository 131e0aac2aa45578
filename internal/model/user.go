package model

import "time"

// AuthorizedUser is a lab member allowed to mutate inventory.  Auth is
// a plain bearer-token lookup against this table; there are no roles
// beyond the admin boolean the lookup implies.  Tokens are generated
// server-side when the user is created and only ever returned to the
// creating admin and on sign-in.
type AuthorizedUser struct {
	ID        string    `json:"id"`
	Initials  string    `json:"initials"`
	Name      string    `json:"name"`
	Token     string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Backup is one stored CSV snapshot of the full inventory.
type Backup struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	Data      string    `json:"-"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}
