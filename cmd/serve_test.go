package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bytefield-ai/chronicle/internal/model"
	"github.com/bytefield-ai/chronicle/internal/store"
)

type stubStore struct {
	episodes []model.Episode
	outputs  map[string]*model.EpisodeOutputs
	hits     []store.SearchHit

	lastFilter store.EpisodeFilter
	lastQuery  string
	lastLimit  int
}

func (s *stubStore) EnsureEpisode(context.Context, model.Episode) error                { return nil }
func (s *stubStore) UpsertEpisodeOutputs(context.Context, *model.EpisodeOutputs) error { return nil }
func (s *stubStore) GetEpisode(context.Context, string) (*model.Episode, error)        { return nil, nil }

func (s *stubStore) GetEpisodeOutputs(_ context.Context, episodeID string) (*model.EpisodeOutputs, error) {
	outputs, ok := s.outputs[episodeID]
	if !ok {
		return nil, eris.Errorf("episode %s not found", episodeID)
	}
	return outputs, nil
}

func (s *stubStore) ListEpisodes(_ context.Context, filter store.EpisodeFilter) ([]model.Episode, error) {
	s.lastFilter = filter
	return s.episodes, nil
}

func (s *stubStore) FetchChannelHistory(_ context.Context, channelID string, _, _ int) (*model.ChannelHistory, error) {
	return &model.ChannelHistory{ChannelID: channelID}, nil
}

func (s *stubStore) SearchClaims(_ context.Context, query string, limit int) ([]store.SearchHit, error) {
	s.lastQuery = query
	s.lastLimit = limit
	return s.hits, nil
}

func (s *stubStore) CreateRun(_ context.Context, episodeID, channelID string) (*model.PipelineRun, error) {
	return &model.PipelineRun{ID: "run-1", EpisodeID: episodeID, ChannelID: channelID}, nil
}

func (s *stubStore) UpdateRunStatus(context.Context, string, model.RunStatus) error { return nil }
func (s *stubStore) CreateStage(context.Context, string, string) (*model.RunStage, error) {
	return &model.RunStage{}, nil
}
func (s *stubStore) CompleteStage(context.Context, string, *model.StageResult) error { return nil }
func (s *stubStore) Migrate(context.Context) error                                   { return nil }
func (s *stubStore) Close() error                                                    { return nil }

func TestServeHealth(t *testing.T) {
	router := newRouter(&stubStore{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServeListEpisodes(t *testing.T) {
	st := &stubStore{episodes: []model.Episode{{ID: "ep-1", Title: "Sleep"}}}
	router := newRouter(st)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/episodes?channel_id=channel-1&limit=5", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "channel-1", st.lastFilter.ChannelID)
	assert.Equal(t, 5, st.lastFilter.Limit)

	var episodes []model.Episode
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &episodes))
	require.Len(t, episodes, 1)
	assert.Equal(t, "ep-1", episodes[0].ID)
}

func TestServeShowEpisode(t *testing.T) {
	st := &stubStore{outputs: map[string]*model.EpisodeOutputs{
		"ep-1": {
			Episode: model.Episode{ID: "ep-1", Title: "Sleep"},
			Claims: []model.Claim{{
				ID: "claim-1", Text: "Sleep matters.", Decision: model.DecisionAccept, Tier: model.TierA, Rank: 1,
			}},
		},
	}}
	router := newRouter(st)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/episodes/ep-1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var summary model.EpisodeSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, "ep-1", summary.Episode.ID)
	require.Len(t, summary.Claims, 1)
	assert.Equal(t, 1, summary.TierCounts[model.TierA])
}

func TestServeShowEpisodeNotFound(t *testing.T) {
	router := newRouter(&stubStore{outputs: map[string]*model.EpisodeOutputs{}})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/episodes/missing", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeSearch(t *testing.T) {
	st := &stubStore{hits: []store.SearchHit{{ClaimID: "claim-1", EpisodeID: "ep-1", Source: "claim", Snippet: "[dopamine] rises"}}}
	router := newRouter(st)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/search?q=dopamine&limit=3", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dopamine", st.lastQuery)
	assert.Equal(t, 3, st.lastLimit)

	var hits []store.SearchHit
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hits))
	require.Len(t, hits, 1)
	assert.Equal(t, "claim-1", hits[0].ClaimID)
}

func TestServeSearchMissingQuery(t *testing.T) {
	router := newRouter(&stubStore{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/search", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/episodes?limit=7&offset=bogus", nil)
	assert.Equal(t, 7, queryInt(req, "limit", 50))
	assert.Equal(t, 0, queryInt(req, "offset", 0))
	assert.Equal(t, 50, queryInt(req, "missing", 50))
}
