package transcript

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeInput(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "episode.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadValid(t *testing.T) {
	path := writeInput(t, `{
		"episode_id": "ep-1",
		"channel_id": "channel-1",
		"title": "Sleep and Memory",
		"segments": [
			{"segment_id": "seg-1", "speaker": "host", "t0": 0, "t1": 30, "text": "Welcome back."},
			{"segment_id": "seg-2", "speaker": "guest", "t0": 30, "t1": 62.5, "text": "Thanks for having me."}
		]
	}`)

	episode, segments, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ep-1", episode.ID)
	assert.Equal(t, "channel-1", episode.ChannelID)
	assert.Equal(t, "Sleep and Memory", episode.Title)

	require.Len(t, segments, 2)
	assert.Equal(t, "ep-1", segments[0].EpisodeID)
	assert.Equal(t, 0, segments[0].Sequence)
	assert.Equal(t, 1, segments[1].Sequence)
	assert.InDelta(t, 62.5, segments[1].T1, 1e-9)
}

func TestLoadKeepsExplicitSequence(t *testing.T) {
	path := writeInput(t, `{
		"episode_id": "ep-1",
		"segments": [
			{"segment_id": "seg-b", "t0": 30, "t1": 60, "text": "second", "sequence": 1},
			{"segment_id": "seg-a", "t0": 0, "t1": 30, "text": "first", "sequence": 0}
		]
	}`)

	_, segments, err := Load(path)
	require.NoError(t, err)
	require.Len(t, segments, 2)
	// File order is preserved; explicit sequences are not overwritten.
	assert.Equal(t, "seg-b", segments[0].ID)
	assert.Equal(t, 1, segments[0].Sequence)
	assert.Equal(t, 0, segments[1].Sequence)
}

func TestLoadSkipsEmptySegments(t *testing.T) {
	path := writeInput(t, `{
		"episode_id": "ep-1",
		"segments": [
			{"segment_id": "seg-1", "t0": 0, "t1": 30, "text": "content"},
			{"segment_id": "seg-2", "t0": 30, "t1": 60, "text": ""}
		]
	}`)

	_, segments, err := Load(path)
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, "seg-1", segments[0].ID)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing episode id",
			content: `{"segments": [{"segment_id": "seg-1", "t0": 0, "t1": 1, "text": "x"}]}`,
			wantErr: "episode_id is required",
		},
		{
			name:    "no segments",
			content: `{"episode_id": "ep-1", "segments": []}`,
			wantErr: "at least one segment",
		},
		{
			name:    "duplicate segment id",
			content: `{"episode_id": "ep-1", "segments": [{"segment_id": "seg-1", "t0": 0, "t1": 1, "text": "x"}, {"segment_id": "seg-1", "t0": 1, "t1": 2, "text": "y"}]}`,
			wantErr: "duplicate segment_id",
		},
		{
			name:    "inverted time range",
			content: `{"episode_id": "ep-1", "segments": [{"segment_id": "seg-1", "t0": 10, "t1": 5, "text": "x"}]}`,
			wantErr: "t1 < t0",
		},
		{
			name:    "segment from other episode",
			content: `{"episode_id": "ep-1", "segments": [{"segment_id": "seg-1", "episode_id": "ep-2", "t0": 0, "t1": 1, "text": "x"}]}`,
			wantErr: "belongs to episode",
		},
		{
			name:    "all segments empty",
			content: `{"episode_id": "ep-1", "segments": [{"segment_id": "seg-1", "t0": 0, "t1": 1, "text": ""}]}`,
			wantErr: "every segment was empty",
		},
		{
			name:    "malformed json",
			content: `{"episode_id": `,
			wantErr: "parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeInput(t, tt.content)
			_, _, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}
