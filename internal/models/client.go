package models

import (
	"strings"
	"time"
)

// Admin permissions granted to API clients
const (
	PermContentWrite    = "content:write"
	PermEnrollmentsRead = "enrollments:read"
	PermLeadsWrite      = "leads:write"
)

// ApiClient is a back-office integration (CMS hook, operator script) calling admin endpoints
type ApiClient struct {
	ID          int        `json:"id"`
	Name        string     `json:"name"`
	ApiKey      string     `json:"-"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	Permissions []string   `json:"permissions"`
}

// HasPermission checks if client has the permission.
// "*" grants everything and "content:*" grants every content permission.
func (c *ApiClient) HasPermission(required string) bool {
	if c == nil || !c.IsActive {
		return false
	}

	resource, _, _ := strings.Cut(required, ":")
	for _, perm := range c.Permissions {
		switch perm {
		case required, "*", resource + ":*":
			return true
		}
	}
	return false
}

// MaskedApiKey returns first 8 characters of API key for logging
func (c *ApiClient) MaskedApiKey() string {
	return MaskKey(c.ApiKey)
}

// MaskKey returns the first 8 characters of a key for safe logging
func MaskKey(key string) string {
	if len(key) < 8 {
		return "***"
	}
	return key[:8] + "..."
}
