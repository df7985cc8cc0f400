package domain

// Principal is the authenticated caller.
type Principal struct {
	UserID string
	Email  string
	Name   string
	Admin  bool
}
