package services

import (
	"mime"
	"net/http"
	"slices"
)

// Stored uploads are typed by their sniffed content, not the client's claim.
var (
	// inlineTypes may be displayed by the browser when served.
	inlineTypes = []string{"image/png", "image/jpeg", "image/gif", "image/webp", "application/pdf"}

	consentTypes = inlineTypes
	reportTypes  = append(slices.Clone(inlineTypes), "application/zip", "text/plain")
)

// sniff returns the media type detected from data and whether allowed holds it.
func sniff(data []byte, allowed []string) (string, bool) {
	mediaType, _, err := mime.ParseMediaType(http.DetectContentType(data))
	if err != nil {
		return "", false
	}
	return mediaType, slices.Contains(allowed, mediaType)
}

// Inline reports whether contentType may be served for display rather than download.
func Inline(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && slices.Contains(inlineTypes, mediaType)
}
