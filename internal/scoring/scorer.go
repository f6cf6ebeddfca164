package scoring

import "github.com/influencer-scout/backend/internal/storage/models"

// Tier classifies a creator's quality score.
type Tier string

const (
	TierHigh   Tier = "High"
	TierMedium Tier = "Medium"
	TierLow    Tier = "Low"
)

// Quality is the derived assessment of a video+author snapshot. It is
// recomputed on demand and never persisted, so it always reflects the
// current weights.
type Quality struct {
	Score          int     `json:"score"`
	Tier           Tier    `json:"level"`
	EngagementRate float64 `json:"engagementRate"`
	FollowerCount  int64   `json:"subscriberCount"`
	Verified       bool    `json:"verified"`
	TotalHearts    int64   `json:"totalHearts"`
	VideoCount     int64   `json:"videoCount"`
}

// EngagementRate is likes over plays as a percentage. A video with zero
// plays has an engagement rate of zero.
func EngagementRate(v models.Video) float64 {
	if v.Stats.PlayCount == 0 {
		return 0
	}
	return float64(v.Stats.DiggCount) / float64(v.Stats.PlayCount) * 100
}

// Score maps a video snapshot to a deterministic quality assessment.
// Weighted additive scoring, max 100; every bracket threshold is a strict
// greater-than, so boundary values fall to the lower bracket.
func Score(v models.Video) Quality {
	engagementRate := EngagementRate(v)
	followers := v.AuthorStats.FollowerCount
	videoCount := v.AuthorStats.VideoCount
	verified := v.Author.Verified
	totalHearts := v.AuthorStats.HeartCount

	score := 0

	// Engagement rate, up to 40 points.
	switch {
	case engagementRate > 10:
		score += 40
	case engagementRate > 5:
		score += 30
	case engagementRate > 2:
		score += 20
	case engagementRate > 1:
		score += 10
	}

	// Follower count, up to 30 points.
	switch {
	case followers > 10_000_000:
		score += 30
	case followers > 1_000_000:
		score += 25
	case followers > 100_000:
		score += 20
	case followers > 10_000:
		score += 15
	case followers > 1_000:
		score += 10
	}

	// Verification bonus.
	if verified {
		score += 10
	}

	// Posting consistency, up to 10 points.
	switch {
	case videoCount > 1000:
		score += 10
	case videoCount > 500:
		score += 8
	case videoCount > 100:
		score += 6
	case videoCount > 50:
		score += 4
	case videoCount > 20:
		score += 2
	}

	// Lifetime hearts, up to 10 points.
	switch {
	case totalHearts > 100_000_000:
		score += 10
	case totalHearts > 10_000_000:
		score += 8
	case totalHearts > 1_000_000:
		score += 6
	case totalHearts > 100_000:
		score += 4
	case totalHearts > 10_000:
		score += 2
	}

	var tier Tier
	switch {
	case score >= 70:
		tier = TierHigh
	case score >= 40:
		tier = TierMedium
	default:
		tier = TierLow
	}

	return Quality{
		Score:          score,
		Tier:           tier,
		EngagementRate: engagementRate,
		FollowerCount:  followers,
		Verified:       verified,
		TotalHearts:    totalHearts,
		VideoCount:     videoCount,
	}
}
