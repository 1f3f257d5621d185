package domain

// AllowedMIMETypes is the exact set of upload content types accepted.
// Matching is exact and case-sensitive, so a type carrying parameters such
// as "; codecs=..." is rejected.
var AllowedMIMETypes = map[string]bool{
	"video/mp4":       true,
	"video/mpeg":      true,
	"video/quicktime": true,
	"video/x-msvideo": true,
}

// IsAllowedMIMEType reports whether mimeType is on the upload allow-list.
func IsAllowedMIMEType(mimeType string) bool {
	return AllowedMIMETypes[mimeType]
}

// Upload describes a stored upload.
type Upload struct {
	Success      bool   `json:"success"`
	FileName     string `json:"fileName"`
	OriginalName string `json:"originalName"`
	MIMEType     string `json:"mimeType"`
	Size         int64  `json:"size"`
	Path         string `json:"path"`
	URL          string `json:"url,omitempty"`
}
