package email

type Attachment struct {
	Name    string
	Content []byte
	// MIME type of the attachment; defaults to application/octet-stream.
	ContentType string
}

type Message struct {
	To          []string
	CC          []string
	BCC         []string
	Subject     string
	TextBody    string
	HTMLBody    string
	Headers     map[string]string
	Attachments []Attachment
}
