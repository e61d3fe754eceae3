package models

import "time"

// VideoRecord is the persisted state of one uploaded audio track.
// Transcription stays nil until the transcription stage stores a result.
type VideoRecord struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Path          string    `json:"path"`
	Transcription *string   `json:"transcription"`
	CreatedAt     time.Time `json:"createdAt"`
}

// HasTranscription reports whether a completion may run against the record.
func (v *VideoRecord) HasTranscription() bool {
	return v.Transcription != nil
}

type PromptTemplate struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Template string `json:"template"`
}

type PromptsFile struct {
	Prompts []PromptTemplate `json:"prompts"`
}
