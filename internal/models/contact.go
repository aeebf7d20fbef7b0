package models

// ContactMessage is a submission of the public contact form.
type ContactMessage struct {
	Name             string `json:"name"`
	Email            string `json:"email"`
	Phone            string `json:"phone,omitempty"`
	Subject          string `json:"subject"`
	Message          string `json:"message"`
	AcceptTerms      bool   `json:"accept_terms"`
	AcceptNewsletter bool   `json:"accept_newsletter"`
}
