// Package vault defines the vault record model and how a record is sealed
// for storage.
package vault

import "time"

// Item types.
const (
	TypePassword = "password"
	TypeCard     = "card"
	TypeIdentity = "identity"
	TypeNote     = "note"
)

// DefaultCategory is assigned to records created without one.
const DefaultCategory = "General"

// Record is one vault item. The JSON field names and order are the backup
// schema; do not reorder.
type Record struct {
	ID         int64    `json:"id"`
	Title      string   `json:"title"`
	Username   string   `json:"username"`
	Password   string   `json:"password"`
	URL        string   `json:"url"`
	Notes      string   `json:"notes"`
	Category   string   `json:"category"`
	IsFavorite bool     `json:"isFavorite"`
	Tags       []string `json:"tags"`
	TOTPSecret string   `json:"totpSecret"`
	HasTOTP    bool     `json:"hasTOTP"`
	ItemType   string   `json:"itemType"`
	CardNumber string   `json:"cardNumber"`
	CardCVV    string   `json:"cardCVV"`
	CardExpiry string   `json:"cardExpiry"`
	CardHolder string   `json:"cardHolder"`

	// Epoch milliseconds.
	CreatedAt  int64 `json:"createdAt"`
	ModifiedAt int64 `json:"modifiedAt"`
}

// Normalize fills defaults: category, item type, non-nil tags and the
// HasTOTP flag derived from the secret.
func (r *Record) Normalize() {
	if r.Category == "" {
		r.Category = DefaultCategory
	}
	if r.ItemType == "" {
		r.ItemType = TypePassword
	}
	if r.Tags == nil {
		r.Tags = []string{}
	}
	r.HasTOTP = r.TOTPSecret != ""
}

// Touch sets ModifiedAt, and CreatedAt when unset, to now.
func (r *Record) Touch(now time.Time) {
	ms := now.UnixMilli()
	if r.CreatedAt == 0 {
		r.CreatedAt = ms
	}
	r.ModifiedAt = ms
}

// ValidItemType reports whether t is one of the known item types.
func ValidItemType(t string) bool {
	switch t {
	case TypePassword, TypeCard, TypeIdentity, TypeNote:
		return true
	}
	return false
}
