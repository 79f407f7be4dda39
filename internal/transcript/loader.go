// Package transcript loads segmented transcripts from JSON input files and
// validates them before the pipeline runs.
package transcript

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/bytefield-ai/chronicle/internal/model"
)

// Input is the on-disk shape of a segmented episode transcript.
type Input struct {
	EpisodeID string          `json:"episode_id"`
	ChannelID string          `json:"channel_id,omitempty"`
	Title     string          `json:"title,omitempty"`
	Segments  []model.Segment `json:"segments"`
}

// Load reads and validates a transcript file. Segments keep file order;
// missing sequence numbers are assigned from position.
func Load(path string) (model.Episode, []model.Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Episode{}, nil, eris.Wrapf(err, "transcript: read %s", path)
	}

	var input Input
	if err := json.Unmarshal(data, &input); err != nil {
		return model.Episode{}, nil, eris.Wrapf(err, "transcript: parse %s", path)
	}

	episode := model.Episode{
		ID:        input.EpisodeID,
		Title:     input.Title,
		ChannelID: input.ChannelID,
	}
	segments, err := validate(episode.ID, input.Segments)
	if err != nil {
		return model.Episode{}, nil, err
	}
	return episode, segments, nil
}

func validate(episodeID string, segments []model.Segment) ([]model.Segment, error) {
	if episodeID == "" {
		return nil, eris.New("transcript: episode_id is required")
	}
	if len(segments) == 0 {
		return nil, eris.New("transcript: at least one segment is required")
	}

	seen := make(map[string]struct{}, len(segments))
	out := make([]model.Segment, 0, len(segments))
	hasSequence := false
	for _, seg := range segments {
		if seg.Sequence != 0 {
			hasSequence = true
		}
	}

	for i, seg := range segments {
		if seg.ID == "" {
			return nil, eris.Errorf("transcript: segment %d has no segment_id", i)
		}
		if _, dup := seen[seg.ID]; dup {
			return nil, eris.Errorf("transcript: duplicate segment_id %s", seg.ID)
		}
		seen[seg.ID] = struct{}{}

		if seg.Text == "" {
			zap.L().Warn("transcript: skipping empty segment", zap.String("segment_id", seg.ID))
			continue
		}
		if seg.T1 < seg.T0 {
			return nil, eris.Errorf("transcript: segment %s has t1 < t0", seg.ID)
		}
		if seg.EpisodeID != "" && seg.EpisodeID != episodeID {
			return nil, eris.Errorf("transcript: segment %s belongs to episode %s", seg.ID, seg.EpisodeID)
		}

		seg.EpisodeID = episodeID
		if !hasSequence {
			seg.Sequence = i
		}
		out = append(out, seg)
	}

	if len(out) == 0 {
		return nil, eris.New("transcript: every segment was empty")
	}
	return out, nil
}
