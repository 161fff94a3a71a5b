package dto

// CountResponse wraps a bare total.
type CountResponse struct {
	Count int64 `json:"count"`
}

// AffectedResponse reports how many rows a write touched.
type AffectedResponse struct {
	Affected int64 `json:"affected"`
}

// SuccessResponse for operations without data.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// TokenResponse carries an issued access token.
type TokenResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresAt   string `json:"expiresAt"`
}
