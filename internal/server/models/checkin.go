package models

import "time"

// Sentiment labels produced by analysis.
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

// CheckIn is the finished voice check-in produced by a completed job.
type CheckIn struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"userId"`
	JobID           string    `json:"jobId"`
	AudioURL        string    `json:"-"`
	DurationSeconds int       `json:"duration"`
	Transcript      string    `json:"transcript"`
	Text            string    `json:"text,omitempty"`
	Mood            string    `json:"mood,omitempty"`
	Sentiment       string    `json:"sentiment"`
	SentimentScore  float64   `json:"sentimentScore"`
	Emotions        []string  `json:"emotions"`
	Category        string    `json:"category"`
	Title           string    `json:"title"`
	CreatedAt       time.Time `json:"createdAt"`

	// PlaybackURL is filled on read when audio exists.
	PlaybackURL string `json:"audioUrl,omitempty"`
}

// Sentiment is the mood reading of a transcript.
type Sentiment struct {
	Label    string   `json:"sentiment"`
	Score    float64  `json:"score"`
	Emotions []string `json:"emotions"`
}
