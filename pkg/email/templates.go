package email

import "fmt"

// FileReady is sent when a cold-storage restoration finished and the
// decrypted document is attached.
func FileReady(to, fileName string, content []byte, contentType string) Message {
	return Message{
		To:      []string{to},
		Subject: fmt.Sprintf("Your archived file %s is ready", fileName),
		TextBody: fmt.Sprintf(
			"The archived document %s has been restored from cold storage and is attached to this email.\n", fileName),
		Attachments: []Attachment{{Name: fileName, Content: content, ContentType: contentType}},
	}
}

// DownloadRequest delivers a copy of an archived document to the back
// office with the hospital admin in CC.
func DownloadRequest(backOffice, adminCC, hospital, mrd, fileName string, content []byte, contentType string) Message {
	m := Message{
		To:      []string{backOffice},
		Subject: fmt.Sprintf("Document request: %s / %s", hospital, mrd),
		TextBody: fmt.Sprintf(
			"Requested document for patient MRD %s of %s is attached.\nFile: %s\n", mrd, hospital, fileName),
		Attachments: []Attachment{{Name: fileName, Content: content, ContentType: contentType}},
	}
	if adminCC != "" {
		m.CC = []string{adminCC}
	}
	return m
}
