package models

import "time"

// Link represents a shortened link and its associated metadata.
type Link struct {
	// ID is the unique identifier for the link record.
	ID int64 `json:"id"`
	// ShortCode is the code the link is resolved by. It never changes after creation.
	ShortCode string `json:"short_code"`
	// OriginalURL is the destination the short code points to.
	OriginalURL string `json:"original_url"`
	// CreatedAt is the timestamp indicating when the link was created.
	CreatedAt time.Time `json:"created_at"`
	// ExpiresAt is the moment after which the link no longer resolves. Nil means never.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	// Clicks tracks the number of successful resolutions.
	Clicks int64 `json:"clicks"`
	// LastUsed is the timestamp of the latest successful resolution.
	LastUsed *time.Time `json:"last_used,omitempty"`
	// IsActive reports whether the link may be resolved at all.
	IsActive bool `json:"is_active"`
	// Project is an optional grouping label.
	Project *string `json:"project,omitempty"`
	// OwnerID references the user who created the link. Nil means anonymous.
	OwnerID *int64 `json:"owner_id,omitempty"`
}

// IsExpired reports whether the link has an expiry at or before now.
func (l *Link) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && !l.ExpiresAt.After(now)
}

// IsResolvable reports whether the link is active and not expired at now.
func (l *Link) IsResolvable(now time.Time) bool {
	return l.IsActive && !l.IsExpired(now)
}

// OwnedBy reports whether ownerID matches the link owner.
// A nil ownerID matches anonymous links only.
func (l *Link) OwnedBy(ownerID *int64) bool {
	if l.OwnerID == nil || ownerID == nil {
		return l.OwnerID == nil && ownerID == nil
	}
	return *l.OwnerID == *ownerID
}

// Stats projects the link into its statistics view.
func (l *Link) Stats() LinkStats {
	return LinkStats{
		OriginalURL: l.OriginalURL,
		CreatedAt:   l.CreatedAt,
		Clicks:      l.Clicks,
		LastUsed:    l.LastUsed,
	}
}

// LinkStats is the reduced statistics view of a link.
type LinkStats struct {
	OriginalURL string     `json:"original_url"`
	CreatedAt   time.Time  `json:"created_at"`
	Clicks      int64      `json:"clicks"`
	LastUsed    *time.Time `json:"last_used,omitempty"`
}

// NewLink holds the fields required to insert a link.
type NewLink struct {
	ShortCode   string
	OriginalURL string
	ExpiresAt   *time.Time
	Project     *string
	OwnerID     *int64
}

// LinkUpdate holds the fields of a partial link update. Nil fields are left untouched.
type LinkUpdate struct {
	OriginalURL *string
	ExpiresAt   *time.Time
}

// LinkCreate holds the caller-supplied fields of a shorten request.
type LinkCreate struct {
	OriginalURL string
	// CustomCode, when set, is used verbatim instead of a generated code.
	CustomCode string
	ExpiresAt  *time.Time
	Project    *string
}
