package filter

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"html"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"regexp"
	"strings"

	"golang.org/x/text/encoding/htmlindex"

	"github.com/mikey/nb-spam-filter/internal/core"
)

// maxMultipartDepth bounds recursion into nested multipart bodies
const maxMultipartDepth = 10

var (
	htmlBlockRe = regexp.MustCompile(`(?is)<(script|style)\b[^>]*>.*?</(script|style)>`)
	htmlTagRe   = regexp.MustCompile(`(?s)<[^>]*>`)
)

var wordDecoder = &mime.WordDecoder{CharsetReader: charsetReader}

// charsetReader converts input in the named charset to UTF-8
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	charset = strings.ToLower(strings.TrimSpace(charset))
	switch charset {
	case "", "utf-8", "utf8", "us-ascii", "ascii":
		return input, nil
	}

	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", charset, err)
	}
	return enc.NewDecoder().Reader(input), nil
}

// decodeEncodedHeader decodes RFC 2047 encoded words such as =?iso-8859-1?q?caf=E9?=
func decodeEncodedHeader(value string) (string, error) {
	return wordDecoder.DecodeHeader(value)
}

// extractTextFromMessage returns the readable text of a message. Nested
// multiparts are walked; text/plain parts are preferred and text/html parts are
// only used, with markup stripped, when no plain part exists. Attachments are skipped.
func extractTextFromMessage(msg *mail.Message) (string, error) {
	var plain, htmlParts []string
	err := collectText(textproto.MIMEHeader(msg.Header), msg.Body, 0, &plain, &htmlParts)
	if err != nil && len(plain) == 0 && len(htmlParts) == 0 {
		return "", err
	}

	if len(plain) > 0 {
		return strings.Join(plain, "\n"), nil
	}
	return strings.Join(htmlParts, "\n"), nil
}

func collectText(header textproto.MIMEHeader, body io.Reader, depth int, plain, htmlParts *[]string) error {
	if depth > maxMultipartDepth {
		return errors.New("multipart nesting too deep")
	}

	mediaType, params, err := mime.ParseMediaType(header.Get("Content-Type"))
	if err != nil {
		mediaType, params = "text/plain", map[string]string{}
	}

	if disposition, _, err := mime.ParseMediaType(header.Get("Content-Disposition")); err == nil &&
		disposition == "attachment" {
		return nil
	}

	switch {
	case strings.HasPrefix(mediaType, "multipart/"):
		boundary := params["boundary"]
		if boundary == "" {
			return readTextPart(header, body, params, plain)
		}
		mr := multipart.NewReader(body, boundary)
		for {
			part, err := mr.NextPart()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to read multipart body: %w", err)
			}
			if err := collectText(part.Header, part, depth+1, plain, htmlParts); err != nil {
				return err
			}
		}
	case mediaType == "text/html":
		return readTextPart(header, body, params, htmlParts)
	case strings.HasPrefix(mediaType, "text/"):
		return readTextPart(header, body, params, plain)
	default:
		return nil
	}
}

func readTextPart(header textproto.MIMEHeader, body io.Reader, params map[string]string, out *[]string) error {
	switch strings.ToLower(strings.TrimSpace(header.Get("Content-Transfer-Encoding"))) {
	case "base64":
		body = base64.NewDecoder(base64.StdEncoding, body)
	case "quoted-printable":
		body = quotedprintable.NewReader(body)
	}

	decoded, err := charsetReader(params["charset"], body)
	if err != nil {
		// unknown charsets are read as-is
		decoded = body
	}

	data, err := io.ReadAll(decoded)
	if err != nil {
		return fmt.Errorf("failed to read text part: %w", err)
	}

	text := string(data)
	if mediaType, _, _ := mime.ParseMediaType(header.Get("Content-Type")); mediaType == "text/html" {
		text = stripHTML(text)
	}
	if strings.TrimSpace(text) != "" {
		*out = append(*out, text)
	}
	return nil
}

// stripHTML drops scripts, styles and tags, then unescapes entities
func stripHTML(s string) string {
	s = htmlBlockRe.ReplaceAllString(s, " ")
	s = htmlTagRe.ReplaceAllString(s, " ")
	return html.UnescapeString(s)
}

// ParseEmail reads an RFC 5322 message. Envelope sender and recipients win over
// the From and To headers when given. The subject is decoded to UTF-8.
func ParseEmail(raw []byte, sender string, recipients []string) (*core.Email, *mail.Message, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse email message: %w", err)
	}

	body, err := extractTextFromMessage(msg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to extract text content: %w", err)
	}

	subject := msg.Header.Get("Subject")
	if decoded, err := decodeEncodedHeader(subject); err == nil {
		subject = decoded
	}

	email := &core.Email{
		From:    sender,
		To:      recipients,
		Subject: subject,
		Body:    body,
		Headers: make(map[string][]string, len(msg.Header)),
	}
	for key, values := range msg.Header {
		email.Headers[key] = values
	}

	if email.From == "" {
		email.From = msg.Header.Get("From")
	}
	if len(email.To) == 0 {
		if list, err := msg.Header.AddressList("To"); err == nil {
			for _, addr := range list {
				email.To = append(email.To, addr.Address)
			}
		}
	}

	return email, msg, nil
}
