package storage

import (
	"net/url"
	"strings"
)

// Per-user key names
const (
	KeyWallet           = "unified-wallet"
	KeyWatchSession     = "current-watch-session"
	KeyCompletedQuizzes = "completed-quizzes"
	KeyStorePurchases   = "store-purchases"
	KeyActiveQuiz       = "active-quiz"
	KeyQuizAttempts     = "quiz-attempts"
	KeyViewingHistory   = "viewing-history"
	KeyIntentHistory    = "user-intent-history"
)

// Global keys
const (
	KeyAdvertisements = "advertisements"
	KeyParties        = "viewing-parties"
	KeyPartyMembers   = "party-members"
	KeyFacts          = "facts"
	KeyFactIndex      = "fact-index"
	KeyVideoQueue     = "video-queue"
	KeyWalletIndex    = "wallet-index"
	KeyCommunityChat  = "community-chat"
)

const (
	userPrefix     = "user/"
	playbackPrefix = "party-playback/"
	chatPrefix     = "party-chat/"
)

// UserKey namespaces a per-user key so viewers never share a record
func UserKey(userID, name string) string {
	return userPrefix + url.PathEscape(userID) + "/" + name
}

// UserFromKey extracts the user ID from a key built by UserKey
func UserFromKey(key string) (string, bool) {
	rest, ok := strings.CutPrefix(key, userPrefix)
	if !ok {
		return "", false
	}
	escaped, _, ok := strings.Cut(rest, "/")
	if !ok {
		return "", false
	}
	userID, err := url.PathUnescape(escaped)
	if err != nil {
		return "", false
	}
	return userID, true
}

// PlaybackKey is the key holding a party's playback state
func PlaybackKey(partyID string) string {
	return playbackPrefix + partyID
}

// PartyChatKey is the key holding a party's chat log
func PartyChatKey(partyID string) string {
	return chatPrefix + partyID
}

// QuizKey is the completed-set entry for a title
func QuizKey(videoTitle string) string {
	return "quiz-" + videoTitle
}
