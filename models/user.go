// Package models contains the data models shared by the gateway, the record service and the user interface.
package models

// Field names of a user record as they appear on the wire and in the field schema.
const (
	FieldID          = "id"
	FieldFirstName   = "firstName"
	FieldLastName    = "lastName"
	FieldPhoneNumber = "phoneNumber"
	FieldEmail       = "email"
)

// User represents a user record in the system.
// User has the following properties:
// - ID: The identifier assigned by the gateway when the user is created.
// - FirstName: The first name of the user.
// - LastName: The last name of the user.
// - PhoneNumber: The phone number, with an optional country prefix.
// - Email: The email address of the user.
type User struct {
	ID          string `json:"id,omitempty"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber"`
	Email       string `json:"email"`
}

// Value returns the value of the named field, or "" for an unknown name.
func (u User) Value(name string) string {
	switch name {
	case FieldID:
		return u.ID
	case FieldFirstName:
		return u.FirstName
	case FieldLastName:
		return u.LastName
	case FieldPhoneNumber:
		return u.PhoneNumber
	case FieldEmail:
		return u.Email
	}
	return ""
}

// Set assigns the named field. It reports false for an unknown name.
// The id is not settable through Set; only the gateway assigns it.
func (u *User) Set(name, value string) bool {
	switch name {
	case FieldFirstName:
		u.FirstName = value
	case FieldLastName:
		u.LastName = value
	case FieldPhoneNumber:
		u.PhoneNumber = value
	case FieldEmail:
		u.Email = value
	default:
		return false
	}
	return true
}

// Values returns the mutable fields keyed by name.
func (u User) Values() map[string]string {
	return map[string]string{
		FieldFirstName:   u.FirstName,
		FieldLastName:    u.LastName,
		FieldPhoneNumber: u.PhoneNumber,
		FieldEmail:       u.Email,
	}
}

// Merge copies every known field in values onto u, leaving the id untouched.
func (u *User) Merge(values map[string]string) {
	for name, value := range values {
		u.Set(name, value)
	}
}
