package filter

import (
	"bytes"
	"mime"
	"strings"
	"unicode"
)

// headerField is a header line prepended to a filtered message
type headerField struct {
	Name  string
	Value string
}

// splitMessage separates the raw header block from the body, returning the
// separator that was found so the body can be reattached unchanged
func splitMessage(raw []byte) (header, sep, body []byte) {
	if i := bytes.Index(raw, []byte("\r\n\r\n")); i >= 0 {
		return raw[:i+2], []byte("\r\n"), raw[i+4:]
	}
	if i := bytes.Index(raw, []byte("\n\n")); i >= 0 {
		return raw[:i+1], []byte("\n"), raw[i+2:]
	}
	return raw, nil, nil
}

// rewriteMessage prepends fields, drops any copies of them already present and,
// when subject is not empty, replaces the Subject header. The body is kept byte for byte.
func rewriteMessage(raw []byte, fields []headerField, subject string) []byte {
	header, sep, body := splitMessage(raw)

	drop := make(map[string]bool, len(fields)+1)
	for _, f := range fields {
		drop[strings.ToLower(f.Name)] = true
	}
	if subject != "" {
		drop["subject"] = true
	}

	var out bytes.Buffer
	for _, f := range fields {
		writeHeader(&out, f.Name, f.Value)
	}
	if subject != "" {
		writeHeader(&out, "Subject", encodeHeaderValue(subject))
	}

	skipping := false
	for _, line := range bytes.SplitAfter(header, []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		if line[0] == ' ' || line[0] == '\t' {
			// folded continuation of the previous field
			if !skipping {
				out.Write(line)
			}
			continue
		}
		name, _, _ := bytes.Cut(line, []byte(":"))
		skipping = drop[strings.ToLower(strings.TrimSpace(string(name)))]
		if !skipping {
			out.Write(line)
		}
	}

	if sep == nil {
		sep = []byte("\r\n")
	}
	out.Write(sep)
	out.Write(body)
	return out.Bytes()
}

func writeHeader(buf *bytes.Buffer, name, value string) {
	buf.WriteString(name)
	buf.WriteString(": ")
	buf.WriteString(sanitizeHeaderValue(value))
	buf.WriteString("\r\n")
}

// sanitizeHeaderValue keeps a value on a single line
func sanitizeHeaderValue(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

// encodeHeaderValue uses RFC 2047 encoding when the value is not plain ASCII
func encodeHeaderValue(value string) string {
	for _, r := range value {
		if r > unicode.MaxASCII {
			return mime.QEncoding.Encode("utf-8", value)
		}
	}
	return value
}
