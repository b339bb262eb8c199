// Package submission prepares an image and social handle for upload: it
// validates the image, normalizes the handle and embeds image bytes as data URIs.
package submission

import (
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"socialgrid/internal/models"
)

// MaxImageBytes is the largest image accepted for a post.
const MaxImageBytes = 4 << 20

// Validation notices shown to the user.
const (
	MsgImageTooLarge = "File size should be less than 4MB"
	MsgNotAnImage    = "Please select an image file"
)

// Submission is a validated upload ready to be sent as multipart form data.
type Submission struct {
	FileName   string
	MIMEType   string
	Image      []byte
	TwitterURL string
	UserID     string
}

// ValidateImage checks the size limit and that mimeType is an image type.
func ValidateImage(size int64, mimeType string) error {
	if size > MaxImageBytes {
		return models.NewValidationError(MsgImageTooLarge)
	}
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(mimeType)), "image/") {
		return models.NewValidationError(MsgNotAnImage)
	}
	return nil
}

// DetectMIME guesses the type of a file from its extension, falling back to
// content sniffing when the extension is unknown or not an image type.
func DetectMIME(name string, data []byte) string {
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); strings.HasPrefix(byExt, "image/") {
		if i := strings.IndexByte(byExt, ';'); i >= 0 {
			byExt = byExt[:i]
		}
		return byExt
	}
	sniffed := http.DetectContentType(data)
	if i := strings.IndexByte(sniffed, ';'); i >= 0 {
		sniffed = sniffed[:i]
	}
	return sniffed
}

// NormalizeHandle turns a profile URL or bare handle into an "@handle" string.
// A profile URL contributes its path; anything else gets an "@" prefix unless it
// already has one. Query strings and extra path segments are kept as-is.
func NormalizeHandle(text string) string {
	text = strings.TrimSpace(text)
	if u, err := url.Parse(text); err == nil && u.Scheme != "" {
		path := u.Path
		if u.Opaque != "" {
			path = u.Opaque
		}
		return "@" + strings.TrimPrefix(path, "/")
	}
	if strings.HasPrefix(text, "@") {
		return text
	}
	return "@" + text
}

// EncodeDataURI embeds data in a "data:<mime>;base64,<payload>" string.
func EncodeDataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURI reverses EncodeDataURI.
func DecodeDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, fmt.Errorf("not a data URI")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("data URI has no payload separator")
	}
	mimeType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return "", nil, fmt.Errorf("data URI is not base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode data URI payload: %w", err)
	}
	return mimeType, data, nil
}

// Package validates the image, normalizes the handle and returns a Submission.
// Missing fields are reported before the image is inspected.
func Package(fileName string, image []byte, handle, userID string) (*Submission, error) {
	if len(image) == 0 || strings.TrimSpace(handle) == "" || strings.TrimSpace(userID) == "" {
		return nil, models.NewValidationError("Please fill in all fields")
	}

	mimeType := DetectMIME(fileName, image)
	if err := ValidateImage(int64(len(image)), mimeType); err != nil {
		return nil, err
	}

	return &Submission{
		FileName:   filepath.Base(fileName),
		MIMEType:   mimeType,
		Image:      image,
		TwitterURL: NormalizeHandle(handle),
		UserID:     strings.TrimSpace(userID),
	}, nil
}
