package entities

import "time"

// Fact is a piece of trivia shown beside the player
type Fact struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Category string `json:"category"`
}

// QueueVideo is a video waiting to be played
type QueueVideo struct {
	ID      string    `json:"id"`
	URL     string    `json:"url"`
	Title   string    `json:"title"`
	AddedAt time.Time `json:"addedAt"`
}

// ViewedVideo is an entry in a viewer's history
type ViewedVideo struct {
	Title    string    `json:"title"`
	ViewedAt time.Time `json:"viewedAt"`
}

// Classification describes how a title is treated by the economy
type Classification struct {
	IsDocumentary bool  `json:"isDocumentary"`
	ViewingFee    int64 `json:"viewingFee"`
}

// Recommendation is the curator's pick for what to play next
type Recommendation struct {
	VideoIndex     int     `json:"videoIndex"`
	Reason         string  `json:"reason"`
	RelevanceScore float64 `json:"relevanceScore"`
}

// CuratedVideo is a suggestion from a curation query
type CuratedVideo struct {
	Title          string  `json:"title"`
	URL            string  `json:"url"`
	Reason         string  `json:"reason"`
	RelevanceScore float64 `json:"relevanceScore"`
	Category       string  `json:"category"`
}

// Analysis is the curator's commentary on a title
type Analysis struct {
	Analysis       string   `json:"analysis"`
	QuantumFactors []string `json:"quantumFactors"`
}
