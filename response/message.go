// Package response contains the bodies the gateway writes for non-record replies.
package response

// A struct type that represents a message with a status and body.
// Message has the following properties:
// - Status: The status of the message.
// - Body: The body of the message.
// - Errors: Field-keyed validation messages, when the request body failed validation.
type Message struct {
	Status string            `json:"status"`
	Body   string            `json:"body"`
	Errors map[string]string `json:"errors,omitempty"`
}

// Failed builds a "Request Failed" message with the given body.
func Failed(body string) Message {
	return Message{Status: "Request Failed", Body: body}
}
