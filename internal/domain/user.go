package domain

// User is the authenticated customer profile as reported by the identity
// provider.
type User struct {
	ID    string
	Name  string
	Email string
	Role  string
}
