package entity

// User is the directory entry for an account, read for display names only.
type User struct {
	ID    string `json:"id" gorm:"primaryKey;size:128"`
	Name  string `json:"name" gorm:"column:name"`
	Email string `json:"email" gorm:"column:email"`
}

func (User) TableName() string {
	return "users"
}

// Actor is the authenticated caller as resolved by the identity provider.
// It is fixed for the lifetime of a request or a live connection.
type Actor struct {
	ID          string `json:"id"`
	DisplayName string `json:"name"`
}

// Participant is the display information attached to chats and messages.
type Participant struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

func (u *User) Participant() *Participant {
	if u == nil {
		return nil
	}
	return &Participant{ID: u.ID, Name: u.Name, Email: u.Email}
}
