package model

import "time"

// Episode is one fully processed content item (e.g. one podcast installment).
// Rows are created lazily as a minimal stub the first time any child entity
// needs one, then enriched once pipeline output is available.
type Episode struct {
	ID        string    `json:"id"`
	Title     string    `json:"title,omitempty"`
	ChannelID string    `json:"channel_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Segment is one timestamped transcript chunk within an episode. Text is
// immutable once stored.
type Segment struct {
	ID        string  `json:"segment_id"`
	EpisodeID string  `json:"episode_id"`
	Speaker   string  `json:"speaker,omitempty"`
	T0        float64 `json:"t0"`
	T1        float64 `json:"t1"`
	Text      string  `json:"text"`
	Sequence  int     `json:"sequence"`
}
