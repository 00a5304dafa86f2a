package domain

// Identity is the stable result of a successful authentication.
type Identity struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
}
