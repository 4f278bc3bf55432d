package model

// Page is a page-number paginated listing.
type Page[T any] struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type AccessToken struct {
	Access string `json:"access"`
}

type UserInfo struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	IsStaff    bool   `json:"is_staff"`
	IsActive   bool   `json:"is_active"`
	DateJoined string `json:"date_joined"`
}
