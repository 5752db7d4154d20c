package model

// User is the resolved identity of an authenticated caller. The broker only
// needs enough of the directory record to address results to the right
// subscriber and to forward role/tag attributes to the super-backend.
type User struct {
	ID           string
	Email        string
	FirstName    string
	LastName     string
	Role         string
	Approved     bool
	GroupTags    []string
	InterestTags []string
}

func (u *User) IsZero() bool { return u == nil || u.ID == "" }
