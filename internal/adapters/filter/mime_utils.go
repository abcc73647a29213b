package filter

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"

	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

// headerDecoder decodes RFC 2047 encoded-words, resolving charsets
// beyond UTF-8 through the IANA registry
var headerDecoder = mime.WordDecoder{
	CharsetReader: func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := ianaindex.MIME.Encoding(charset)
		if err != nil || enc == nil {
			return nil, fmt.Errorf("unsupported charset %q", charset)
		}
		return transform.NewReader(input, enc.NewDecoder()), nil
	},
}

// decodeEncodedHeader decodes a possibly RFC 2047 encoded header value
func decodeEncodedHeader(value string) (string, error) {
	if !strings.Contains(value, "=?") {
		return value, nil
	}
	return headerDecoder.DecodeHeader(value)
}

// extractTextFromMessage extracts the text content from an email message
// For multipart messages, it tries to find text/plain parts
func extractTextFromMessage(msg *mail.Message) (string, error) {
	contentType := msg.Header.Get("Content-Type")

	// If it's not a multipart message, just return the body
	if !strings.Contains(strings.ToLower(contentType), "multipart/") {
		bodyBytes, err := io.ReadAll(msg.Body)
		if err != nil {
			return "", err
		}
		return string(bodyBytes), nil
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		bodyBytes, err := io.ReadAll(msg.Body)
		if err != nil {
			return "", err
		}
		return string(bodyBytes), nil
	}

	boundary, ok := params["boundary"]
	if !ok {
		bodyBytes, err := io.ReadAll(msg.Body)
		if err != nil {
			return "", err
		}
		return string(bodyBytes), nil
	}

	mr := multipart.NewReader(msg.Body, boundary)

	var textContent bytes.Buffer

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Return whatever text was collected before the malformed part
			if textContent.Len() > 0 {
				return textContent.String(), nil
			}
			bodyBytes, err := io.ReadAll(msg.Body)
			if err != nil {
				return "", err
			}
			return string(bodyBytes), nil
		}

		partContentType := part.Header.Get("Content-Type")

		if strings.Contains(strings.ToLower(partContentType), "text/plain") {
			partBytes, err := io.ReadAll(part)
			if err != nil {
				continue // Skip this part if we can't read it
			}
			textContent.Write(partBytes)
			textContent.WriteString("\n")
		}
		// Skip other parts (attachments, nested multiparts, etc.)
	}

	if textContent.Len() > 0 {
		return textContent.String(), nil
	}

	return "[No text content found in multipart message]", nil
}
