package views

import (
	"strings"

	"UserManagerService/controller"
	"UserManagerService/style"
)

const (
	ConfirmTitle   = "Delete User"
	ConfirmMessage = "Are you sure you want to delete this user? This action cannot be undone."
	DeleteLabel    = "Delete"
	DeletingLabel  = "Deleting..."
	confirmKeyHint = "y "
	dismissKeyHint = "n "
)

// RenderConfirm renders the delete confirmation dialog.
func RenderConfirm(snap controller.Snapshot) string {
	var sb strings.Builder
	sb.WriteString(style.Title.Render(ConfirmTitle) + "\n")
	sb.WriteString(ConfirmMessage + "\n\n")
	if snap.Busy() {
		sb.WriteString(style.DisabledButton.Render(CancelLabel) + " " + style.DisabledButton.Render(DeletingLabel))
	} else {
		sb.WriteString(style.Button.Render(dismissKeyHint+CancelLabel) + " " + style.DangerButton.Render(confirmKeyHint+DeleteLabel))
	}
	return style.Panel.Render(sb.String())
}
