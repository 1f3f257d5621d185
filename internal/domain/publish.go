package domain

// Privacy statuses accepted by the YouTube Data API.
const (
	PrivacyPrivate = "private"
	PrivacyPublic  = "public"
)

// PublishRequest describes a clip to upload as a Short.
type PublishRequest struct {
	VideoPath   string   `json:"videoPath"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	IsPrivate   bool     `json:"isPrivate"`
}

// PrivacyStatus maps IsPrivate onto the API's privacy status.
func (r PublishRequest) PrivacyStatus() string {
	if r.IsPrivate {
		return PrivacyPrivate
	}
	return PrivacyPublic
}

// PublishResult is returned after a successful upload.
type PublishResult struct {
	VideoID       string   `json:"videoId"`
	VideoURL      string   `json:"videoUrl"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Tags          []string `json:"tags"`
	PrivacyStatus string   `json:"privacyStatus"`
}

// ShortsURL returns the public Shorts URL of an uploaded video.
func ShortsURL(videoID string) string {
	return "https://youtube.com/shorts/" + videoID
}

// SetTokenRequest carries a refresh token obtained elsewhere.
type SetTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}
