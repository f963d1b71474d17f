// Package mailmsg turns raw RFC 5322 bytes into the in-memory message
// representation the test pipeline inspects.
package mailmsg

import (
	"bytes"
	"fmt"
	"io"
	"net/textproto"
	"strings"

	// Registers decoders for non-UTF-8 message charsets.
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/mikey/delivery-monitor/internal/core"
)

// Parse decodes a raw message into a RetrievedMessage. Header names are
// canonicalized so lookups are case-insensitive; HTML and plain-text
// bodies are pulled from the first matching inline MIME part.
func Parse(raw []byte) (*core.RetrievedMessage, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parsing message: %w", err)
	}
	defer mr.Close()

	msg := &core.RetrievedMessage{
		Raw:     raw,
		Headers: make(map[string][]string),
	}

	fields := mr.Header.Fields()
	for fields.Next() {
		key := textproto.CanonicalMIMEHeaderKey(fields.Key())
		value, err := fields.Text()
		if err != nil {
			// Undecodable encoded-words still carry the raw value.
			value = fields.Value()
		}
		msg.Headers[key] = append(msg.Headers[key], value)
	}
	msg.Subject = msg.Header("Subject")

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading message part: %w", err)
		}

		header, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := header.ContentType()
		body, err := io.ReadAll(part.Body)
		if err != nil {
			continue
		}

		switch {
		case strings.HasPrefix(contentType, "text/html") && msg.HTMLBody == "":
			msg.HTMLBody = string(body)
		case strings.HasPrefix(contentType, "text/plain") && msg.TextBody == "":
			msg.TextBody = string(body)
		}
	}

	return msg, nil
}
