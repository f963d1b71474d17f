package mailmsg

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func crlf(s string) []byte {
	return []byte(strings.ReplaceAll(s, "\n", "\r\n"))
}

func TestParseSinglePartHTML(t *testing.T) {
	raw := crlf(`From: "acme" <test@acme.com>
Sender: test@acme.com
Reply-To: test@acme.com
To: probe@inbox.test
Subject: Test Email from acme.com [abc123]
MIME-Version: 1.0
Content-Type: text/html; charset=utf-8

<html><body><a href="https://acme.com/x">X</a></body></html>
`)

	msg, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "Test Email from acme.com [abc123]", msg.Subject)
	assert.Contains(t, msg.HTMLBody, `href="https://acme.com/x"`)
	assert.Empty(t, msg.TextBody)
	assert.Equal(t, raw, msg.Raw)
}

func TestParseMultipartAlternative(t *testing.T) {
	raw := crlf(`From: test@acme.com
Subject: Hello
MIME-Version: 1.0
Content-Type: multipart/alternative; boundary=BOUND

--BOUND
Content-Type: text/plain; charset=utf-8

Plain version.
--BOUND
Content-Type: text/html; charset=utf-8

<html><body><p>HTML version.</p></body></html>
--BOUND--
`)

	msg, err := Parse(raw)
	require.NoError(t, err)
	assert.Contains(t, msg.TextBody, "Plain version.")
	assert.Contains(t, msg.HTMLBody, "HTML version.")
}

func TestParseHeaderLookupIsCaseInsensitive(t *testing.T) {
	raw := crlf(`From: test@acme.com
REPLY-TO: "acme" <test@acme.com>
Subject: s
Content-Type: text/plain

body
`)

	msg, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, `"acme" <test@acme.com>`, msg.Header("reply-to"))
	assert.Equal(t, `"acme" <test@acme.com>`, msg.Header("Reply-To"))
}

func TestParseAddressForms(t *testing.T) {
	raw := crlf(`From: "acme" <test@acme.com>
Sender: test@acme.com
Subject: s
Content-Type: text/plain

body
`)

	msg, err := Parse(raw)
	require.NoError(t, err)

	from, ok := msg.Address("From")
	require.True(t, ok)
	assert.Equal(t, "acme", from.Name)
	assert.Equal(t, "test@acme.com", from.Address)

	sender, ok := msg.Address("Sender")
	require.True(t, ok)
	assert.Empty(t, sender.Name)
	assert.Equal(t, "test@acme.com", sender.Address)

	_, ok = msg.Address("Reply-To")
	assert.False(t, ok)
}

func TestParseGarbageFails(t *testing.T) {
	_, err := Parse([]byte("Subject incomplete header\x00\x01"))
	require.Error(t, err)
}
