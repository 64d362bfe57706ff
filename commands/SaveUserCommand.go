// Package commands contains the commands for the application to be used for request inputs.
package commands

import "UserManagerService/models"

// SaveUserCommand represents a command to create or update a user.
// It carries every user field except the id, which the gateway owns.
type SaveUserCommand struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber"`
	Email       string `json:"email"`
}

// NewSaveUserCommand builds the command from form values keyed by field name.
func NewSaveUserCommand(values map[string]string) SaveUserCommand {
	return SaveUserCommand{
		FirstName:   values[models.FieldFirstName],
		LastName:    values[models.FieldLastName],
		PhoneNumber: values[models.FieldPhoneNumber],
		Email:       values[models.FieldEmail],
	}
}

// Values returns the command fields keyed by field name.
func (c SaveUserCommand) Values() map[string]string {
	return map[string]string{
		models.FieldFirstName:   c.FirstName,
		models.FieldLastName:    c.LastName,
		models.FieldPhoneNumber: c.PhoneNumber,
		models.FieldEmail:       c.Email,
	}
}
