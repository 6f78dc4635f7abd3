package entities

import "time"

// WatchSession tracks how long a viewer has been watching a single title
type WatchSession struct {
	ID            string    `json:"id"`
	VideoTitle    string    `json:"videoTitle"`
	StartTime     time.Time `json:"startTime"`
	IsDocumentary bool      `json:"isDocumentary"`
	TokensEarned  int64     `json:"tokensEarned"` // Non-decreasing for the life of the session
}

// Quiz is a single multiple-choice question about a video
type Quiz struct {
	ID            string    `json:"id"`
	VideoTitle    string    `json:"videoTitle"`
	IsDocumentary bool      `json:"isDocumentary"`
	Question      string    `json:"question"`
	Options       []string  `json:"options"`
	CorrectAnswer int       `json:"correctAnswer"`
	BonusTokens   int64     `json:"bonusTokens"`
	CreatedAt     time.Time `json:"createdAt"`
}

// QuizResult is what a viewer sees after answering
type QuizResult struct {
	Correct       bool   `json:"correct"`
	CorrectAnswer int    `json:"correctAnswer"`
	TokensAwarded int64  `json:"tokensAwarded"`
	Balance       int64  `json:"balance"`
	Message       string `json:"message"`
}
