package model

import "time"

// RankInfo one leaderboard row
type RankInfo struct {
	UserID      string     `json:"userId"`
	Nickname    string     `json:"nickname"`
	PlayTime    float64    `json:"playTime"`
	Rank        int        `json:"rank"`
	CompletedAt *time.Time `json:"completedAt"`
}

// Leaderboard top players of a target plus the caller's own rank
type Leaderboard struct {
	TopPlayers []*RankInfo `json:"topPlayers"`
	MyRank     *RankInfo   `json:"myRank"`
}

// ActivityDay completion count of one UTC day
type ActivityDay struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// SectorRef short sector reference
type SectorRef struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

// MilestoneStatus milestone annotated for one user
type MilestoneStatus struct {
	RequiredStars int        `json:"requiredStars"`
	Credits       int        `json:"credits"`
	SpaceParts    int        `json:"spaceParts"`
	SectorUnlock  *SectorRef `json:"sectorUnlock"`
	Achieved      bool       `json:"achieved"`
}

// NextMilestone closest unreached milestone
type NextMilestone struct {
	RequiredStars int `json:"requiredStars"`
	StarsNeeded   int `json:"starsNeeded"`
}

// ApodData payload of the NASA APOD API
type ApodData struct {
	Date           string `json:"date"`
	Title          string `json:"title"`
	Explanation    string `json:"explanation"`
	URL            string `json:"url"`
	HDURL          string `json:"hdurl,omitempty"`
	MediaType      string `json:"media_type"`
	Copyright      string `json:"copyright,omitempty"`
	ServiceVersion string `json:"service_version,omitempty"`
}

// IsImage reports whether the entry can be turned into a puzzle
func (a *ApodData) IsImage() bool {
	return a != nil && a.MediaType == "image"
}

// ImageSource highest resolution image available
func (a *ApodData) ImageSource() string {
	if a.HDURL != "" {
		return a.HDURL
	}
	return a.URL
}
