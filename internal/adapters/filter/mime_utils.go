package filter

import (
	"bytes"
	"encoding/base64"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"strings"
)

// maxMIMEDepth bounds recursion into nested multipart bodies
const maxMIMEDepth = 5

// extractTextFromMessage collects the text/plain and text/html content of a
// message, descending into nested multipart parts
func extractTextFromMessage(msg *mail.Message) (string, error) {
	var text bytes.Buffer
	header := textproto.MIMEHeader(msg.Header)
	if err := collectText(&text, header, msg.Body, 0); err != nil {
		return "", err
	}
	return text.String(), nil
}

func collectText(out *bytes.Buffer, header textproto.MIMEHeader, body io.Reader, depth int) error {
	contentType := header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		// Unparseable Content-Type, treat the body as text
		mediaType = "text/plain"
	}

	switch {
	case strings.HasPrefix(mediaType, "multipart/"):
		boundary, ok := params["boundary"]
		if !ok || depth >= maxMIMEDepth {
			return nil
		}
		mr := multipart.NewReader(body, boundary)
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				// Keep whatever was collected before the broken part
				if out.Len() > 0 {
					return nil
				}
				return err
			}
			if err := collectText(out, part.Header, part, depth+1); err != nil {
				return err
			}
		}

	case mediaType == "text/plain" || mediaType == "text/html":
		data, err := io.ReadAll(decodeTransfer(header.Get("Content-Transfer-Encoding"), body))
		if err != nil {
			return err
		}
		out.Write(data)
		out.WriteString("\n")
	}

	// Skip other parts (attachments, etc.)
	return nil
}

// decodeTransfer undoes a Content-Transfer-Encoding. multipart.Reader already
// decodes quoted-printable parts and drops the header, so this mostly matters
// for base64 parts and single-part messages.
func decodeTransfer(encoding string, r io.Reader) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	default:
		return r
	}
}

// ExtractText returns the text of raw input worth scanning for links. Input
// that parses as a message yields its subject and text parts; anything else
// is returned as is.
func ExtractText(raw []byte) string {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil || msg.Header.Get("From") == "" {
		return string(raw)
	}
	text, err := extractTextFromMessage(msg)
	if err != nil {
		return string(raw)
	}
	return msg.Header.Get("Subject") + "\n" + text
}
