// Package session tracks per-conversation history and the skin preferences
// inferred from it.
package session

import (
	"strings"
	"time"

	"github.com/kalambet/skinshop/internal/catalog"
	"github.com/kalambet/skinshop/internal/intent"
)

// MaxHistory is the number of turns a session keeps; older turns are evicted
// first.
const MaxHistory = 10

const (
	summaryTurns     = 3
	summaryAnswerLen = 100
)

// Turn is one query/response exchange.
type Turn struct {
	Query      string       `json:"query"`
	Intent     intent.Label `json:"query_type"`
	Answer     string       `json:"answer"`
	Timestamp  time.Time    `json:"timestamp"`
	ProductIDs []string     `json:"products_shown,omitempty"`
}

// Session is the state of one conversation.
type Session struct {
	ID           string              `json:"session_id"`
	History      []Turn              `json:"conversation_history"`
	Preferences  catalog.Preferences `json:"user_preferences"`
	CreatedAt    time.Time           `json:"created_at"`
	LastActivity time.Time           `json:"last_activity"`
}

func (s *Session) clone() Session {
	cp := *s
	cp.Preferences = s.Preferences.Clone()
	if s.History != nil {
		cp.History = make([]Turn, len(s.History))
		for i, t := range s.History {
			if t.ProductIDs != nil {
				t.ProductIDs = append([]string(nil), t.ProductIDs...)
			}
			cp.History[i] = t
		}
	}
	return cp
}

func (s *Session) appendTurn(t Turn) {
	s.History = append(s.History, t)
	if n := len(s.History); n > MaxHistory {
		kept := make([]Turn, MaxHistory)
		copy(kept, s.History[n-MaxHistory:])
		s.History = kept
	}
}

var skinMentions = []string{"dry skin", "oily skin", "combination skin", "sensitive skin"}

// Checked in order; the first type named anywhere in the query wins.
var skinPriority = []catalog.SkinType{
	catalog.SkinDry,
	catalog.SkinOily,
	catalog.SkinCombination,
	catalog.SkinSensitive,
}

var concernKeywords = []struct {
	concern  catalog.Concern
	keywords []string
}{
	{catalog.ConcernAcne, []string{"acne", "breakout"}},
	{catalog.ConcernAntiAging, []string{"aging", "wrinkle"}},
	{catalog.ConcernDarkSpots, []string{"dark spot", "pigmentation"}},
	{catalog.ConcernHydration, []string{"hydration", "moisture"}},
}

// Extract updates prefs with what query reveals. A skin type is recorded only
// when the query says "<type> skin"; concerns accumulate.
func Extract(query string, prefs catalog.Preferences) catalog.Preferences {
	lower := strings.ToLower(query)
	out := prefs.Clone()

	if containsAny(lower, skinMentions) {
		for _, st := range skinPriority {
			if strings.Contains(lower, string(st)) {
				out.SkinType = st
				break
			}
		}
	}

	var found []catalog.Concern
	for _, ck := range concernKeywords {
		if containsAny(lower, ck.keywords) {
			found = append(found, ck.concern)
		}
	}
	return out.WithConcerns(found...)
}

// Summarize renders the last three turns for prompt injection. Empty history
// yields "".
func Summarize(history []Turn) string {
	if len(history) > summaryTurns {
		history = history[len(history)-summaryTurns:]
	}
	var parts []string
	for _, t := range history {
		parts = append(parts, "User asked: "+t.Query)
		if t.Answer != "" {
			parts = append(parts, "We responded about: "+truncateRunes(t.Answer, summaryAnswerLen)+"...")
		}
	}
	return strings.Join(parts, " | ")
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
