package model

// ChannelHistory is the read-only consistency context for one channel,
// fetched once per episode and passed by value into the miner's context.
type ChannelHistory struct {
	ChannelID string            `json:"channel_id"`
	Claims    []HistoricalClaim `json:"claims"`
	Jargon    []JargonEntry     `json:"jargon"`
}

// Empty reports whether the channel has no usable history.
func (h *ChannelHistory) Empty() bool {
	return h == nil || (len(h.Claims) == 0 && len(h.Jargon) == 0)
}

// HistoricalClaim is a prior claim retrieved for consistency checking,
// grouped by topic for context injection.
type HistoricalClaim struct {
	ID        string `json:"id"`
	EpisodeID string `json:"episode_id"`
	Text      string `json:"text"`
	Topic     string `json:"topic,omitempty"`
	Tier      Tier   `json:"tier,omitempty"`
}

// JargonEntry is an established jargon definition from the channel registry,
// grouped by domain for context injection.
type JargonEntry struct {
	ID         string `json:"id"`
	Term       string `json:"term"`
	Definition string `json:"definition"`
	Domain     string `json:"domain,omitempty"`
}
