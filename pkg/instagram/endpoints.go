package instagram

import (
	"fmt"
	"net/url"
)

const (
	// BaseURL is the base URL for Instagram
	BaseURL = "https://www.instagram.com"

	// ProfileEndpoint resolves a username to profile data including the user ID
	ProfileEndpoint = "/api/v1/users/web_profile_info/"

	// FollowingEndpoint is the endpoint pattern for a user's follow list
	FollowingEndpoint = "/api/v1/friendships/%s/following/"

	// DefaultPageSize is the number of follows fetched per page
	DefaultPageSize = 200
)

// ProfileURL constructs the URL for resolving a username against the given base
func ProfileURL(base, username string) string {
	params := url.Values{}
	params.Set("username", username)

	return fmt.Sprintf("%s%s?%s", base, ProfileEndpoint, params.Encode())
}

// FollowingURL constructs the URL for one page of a user's follow list.
// maxID is the pagination cursor; empty for the first page.
func FollowingURL(base, userID, maxID string, count int) string {
	if count <= 0 {
		count = DefaultPageSize
	}

	params := url.Values{}
	params.Set("count", fmt.Sprintf("%d", count))
	if maxID != "" {
		params.Set("max_id", maxID)
	}

	return fmt.Sprintf("%s%s?%s", base, fmt.Sprintf(FollowingEndpoint, userID), params.Encode())
}

// IsValidUsername checks if a username is valid according to Instagram rules
func IsValidUsername(username string) bool {
	if username == "" || len(username) > 30 {
		return false
	}

	// Instagram usernames can only contain letters, numbers, periods, and underscores
	for _, char := range username {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '.' || char == '_') {
			return false
		}
	}

	return true
}

// SanitizeUsername normalizes a configured handle: strips a leading @ and
// trailing slashes or spaces.
func SanitizeUsername(username string) string {
	if username == "" {
		return ""
	}

	if username[0] == '@' {
		username = username[1:]
	}

	for len(username) > 0 && (username[len(username)-1] == '/' || username[len(username)-1] == ' ') {
		username = username[:len(username)-1]
	}

	return username
}
