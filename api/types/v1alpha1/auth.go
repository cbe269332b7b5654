package v1alpha1

// DeviceCodeResponse represents the server's response to a login start request
type DeviceCodeResponse struct {
	// DeviceCode is the opaque code the client polls with
	DeviceCode string `json:"device_code"`
	// UserCode is the code shown to the user (e.g., "WDJC-XYZK")
	UserCode string `json:"user_code"`
	// VerificationURI is where the user enters the code in a browser
	VerificationURI string `json:"verification_uri"`
	// ExpiresIn is seconds until the codes expire
	ExpiresIn int `json:"expires_in"`
	// PollInterval is how often the client should poll, in seconds
	PollInterval int `json:"interval"`
}

// PollRequest asks whether a pending device login has completed
type PollRequest struct {
	// DeviceCode is the code returned by the start request
	DeviceCode string `json:"device_code"`
	// DeviceID identifies the polling client installation
	DeviceID string `json:"device_id"`
}

// RefreshRequest exchanges a refresh token for a new access token
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
	DeviceID     string `json:"device_id"`
}

// LogoutRequest revokes a refresh token
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenResponse carries credentials issued on login or refresh
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	// ExpiresIn is seconds until the access token expires
	ExpiresIn int `json:"expires_in"`
	// User is populated on login; omitted on refresh
	User *User `json:"user,omitempty"`
}
