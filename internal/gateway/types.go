package gateway

import "encoding/json"

// LoginResponse is returned by GET /{p}/auth/login.
type LoginResponse struct {
	AuthURL string `json:"auth_url"`
	State   string `json:"state"`
}

// UserInfo is the provider-supplied profile. The shape differs per
// provider; the fields below are the common subset, Raw keeps the rest.
type UserInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
	Country     string `json:"country,omitempty"`
	Product     string `json:"product,omitempty"`
	Images      []struct {
		URL string `json:"url"`
	} `json:"images,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// AuthResult is returned by GET /{p}/auth/callback.
type AuthResult struct {
	Success  bool      `json:"success"`
	UserID   string    `json:"user_id"`
	UserInfo *UserInfo `json:"user_info"`
	Message  string    `json:"message,omitempty"`
}

// StatusResponse is returned by GET /{p}/status.
type StatusResponse struct {
	Connected bool `json:"connected"`
}
