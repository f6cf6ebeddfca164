package models

import "time"

// Author is the creator profile embedded in a search result item.
type Author struct {
	ID             string `json:"id"`
	UniqueID       string `json:"uniqueId"`
	Nickname       string `json:"nickname"`
	AvatarLarger   string `json:"avatarLarger"`
	AvatarMedium   string `json:"avatarMedium"`
	AvatarThumb    string `json:"avatarThumb"`
	Signature      string `json:"signature"`
	Verified       bool   `json:"verified"`
	SecUID         string `json:"secUid"`
	PrivateAccount bool   `json:"privateAccount"`
}

// AuthorStats are the creator's aggregate counters at search time.
type AuthorStats struct {
	FollowerCount  int64 `json:"followerCount"`
	FollowingCount int64 `json:"followingCount"`
	HeartCount     int64 `json:"heartCount"`
	DiggCount      int64 `json:"diggCount"`
	VideoCount     int64 `json:"videoCount"`
}

// VideoStats are per-video engagement counters.
type VideoStats struct {
	DiggCount    int64 `json:"diggCount"`
	ShareCount   int64 `json:"shareCount"`
	CommentCount int64 `json:"commentCount"`
	PlayCount    int64 `json:"playCount"`
	CollectCount int64 `json:"collectCount"`
}

// Video is an immutable snapshot of a creator's post, captured at search
// time. It is never mutated after fetch.
type Video struct {
	ID          string      `json:"id"`
	Desc        string      `json:"desc"`
	CreateTime  int64       `json:"createTime"`
	Author      Author      `json:"author"`
	AuthorStats AuthorStats `json:"authorStats"`
	Stats       VideoStats  `json:"stats"`
	IsAd        bool        `json:"isAd"`
}

// LeadState is the outreach pipeline position of a lead. All transitions
// between the three states are legal and none is terminal.
type LeadState string

const (
	LeadStateToReachOut LeadState = "to reach out"
	LeadStateInProgress LeadState = "in progress"
	LeadStateDone       LeadState = "done"
)

func (s LeadState) Valid() bool {
	switch s {
	case LeadStateToReachOut, LeadStateInProgress, LeadStateDone:
		return true
	}
	return false
}

// Lead is a creator under outreach consideration. At most one lead exists
// per author unique-id.
type Lead struct {
	ID      string    `json:"id"`
	Video   Video     `json:"video"`
	State   LeadState `json:"state"`
	Notes   string    `json:"notes,omitempty"`
	AddedAt time.Time `json:"addedAt"`
}

// SummaryNote is the single authoritative free-text annotation per
// influencer, keyed by creator identity rather than lead id.
type SummaryNote struct {
	InfluencerUniqueID string    `json:"influencerUniqueId"`
	Text               string    `json:"summaryNotes"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// TimelineNote is one of many dated, append-only annotations per influencer.
type TimelineNote struct {
	ID                 string    `json:"id"`
	InfluencerUniqueID string    `json:"influencerUniqueId"`
	Content            string    `json:"content"`
	CreatedAt          time.Time `json:"createdAt"`
}

// SearchRecord is one completed search: the keyword and the full result set
// it produced. Immutable after creation except for deletion.
type SearchRecord struct {
	ID          string    `json:"id"`
	Keyword     string    `json:"keyword"`
	Results     []Video   `json:"results"`
	Timestamp   time.Time `json:"timestamp"`
	ResultCount int       `json:"resultCount"`
}
