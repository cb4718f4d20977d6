package services

// Identity is the authenticated caller as carried by the access token.
type Identity struct {
	UserID   string
	Username string
	Email    string
	Role     string
}
