package domain

// Moment is a clip-worthy span of a video as suggested by the model.
// All time fields are HH:MM:SS.mmm clock strings; Timestamp equals StartTime.
type Moment struct {
	Timestamp         string   `json:"timestamp"`
	StartTime         string   `json:"startTime"`
	EndTime           string   `json:"endTime"`
	Duration          string   `json:"duration"`
	Description       string   `json:"description"`
	ViralPotential    int      `json:"viralPotential"`
	SuggestedTitle    string   `json:"suggestedTitle"`
	SuggestedHashtags []string `json:"suggestedHashtags"`
}

// NewMoment attaches a time range to the descriptive fields.
func NewMoment(tr TimeRange, description string, potential int, title string, hashtags []string) Moment {
	if hashtags == nil {
		hashtags = []string{}
	}
	return Moment{
		Timestamp:         tr.StartTime,
		StartTime:         tr.StartTime,
		EndTime:           tr.EndTime,
		Duration:          tr.Duration,
		Description:       description,
		ViralPotential:    potential,
		SuggestedTitle:    title,
		SuggestedHashtags: hashtags,
	}
}

// Scene is one scene change reported by ffmpeg's scene filter.
type Scene struct {
	Index int     `json:"index"`
	Time  float64 `json:"time"`
	Score float64 `json:"score"`
}

// FrameRef is an extracted still together with the span of video it stands for.
// Number is one-based, matching the labels the model sees.
type FrameRef struct {
	Number int
	Path   string
	Start  float64
	End    float64
	Score  float64
}

// AnalyzeRequest is the body of an analysis call.
type AnalyzeRequest struct {
	VideoPath string `json:"videoPath"`
}

// ShortContentRequest asks for editing suggestions at one point in a video.
type ShortContentRequest struct {
	VideoPath string `json:"videoPath"`
	Timestamp string `json:"timestamp"`
}
