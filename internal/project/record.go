package project

import "time"

// Record is the persisted shape of a project. It is the only layout the
// storage backends know about; files travel as a plain map.
type Record struct {
	ID        string            `json:"id"`
	OwnerID   string            `json:"owner_id"`
	Name      string            `json:"name"`
	Type      string            `json:"type"`
	Files     map[string]string `json:"files"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}
