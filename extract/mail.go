package extract

import (
	"fmt"
	"strings"
)

// MailMessage is the subset of an exported mail message carried into the
// document set.
type MailMessage struct {
	Subject    string
	Sender     string
	Recipients string
	Date       string
	Body       string
}

// MailToMarkdown renders a mail message as markdown with the envelope
// metadata preserved above the body.
func MailToMarkdown(msg MailMessage) string {
	subject := strings.NewReplacer(" ", "_", "/", "-").Replace(msg.Subject)

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", subject)
	fmt.Fprintf(&b, "**From:** %s  \n", msg.Sender)
	fmt.Fprintf(&b, "**To:** %s  \n", msg.Recipients)
	fmt.Fprintf(&b, "**Date:** %s  \n\n", msg.Date)
	b.WriteString("---\n\n")
	b.WriteString(strings.TrimSpace(msg.Body))
	b.WriteString("\n")
	return b.String()
}
