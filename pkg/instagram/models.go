package instagram

// ProfileResponse is the response of the web profile endpoint, used to
// resolve a username to its numeric user ID.
type ProfileResponse struct {
	RequiresToLogin bool   `json:"requires_to_login"`
	Data            Data   `json:"data"`
	Status          string `json:"status"`
	Message         string `json:"message"`
}

// Data wraps the user information in the profile response
type Data struct {
	User User `json:"user"`
}

// User represents an Instagram user profile
type User struct {
	ID            string     `json:"id"`
	Username      string     `json:"username"`
	EdgeFollowing EdgeCount  `json:"edge_follow"`
	EdgeFollowers EdgeCount  `json:"edge_followed_by"`
}

// EdgeCount carries a relationship count
type EdgeCount struct {
	Count int `json:"count"`
}

// FollowingResponse is one page of the friendships following endpoint
type FollowingResponse struct {
	Users     []FollowUser `json:"users"`
	NextMaxID string       `json:"next_max_id"`
	BigList   bool         `json:"big_list"`
	Status    string       `json:"status"`
	Message   string       `json:"message"`
}

// FollowUser is one followed account in a following page
type FollowUser struct {
	PK       int64  `json:"pk"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
}
