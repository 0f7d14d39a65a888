// Package smalltalk intercepts conversational, non-informational questions
// (greetings, identity, gratitude) and answers them directly, bypassing
// retrieval and every network call. Matching is a hard short-circuit, not a
// ranking boost.
package smalltalk

import (
	"hash/fnv"
	"regexp"
	"strings"
)

// Kind enumerates the closed set of rule categories. Rules are evaluated in
// the order they appear in the table below, which makes precedence explicit.
type Kind int

const (
	KindGreeting Kind = iota
	KindFarewell
	KindGratitude
	KindIdentity
	KindCapability
	KindOffTopic
	KindJoke
	KindConfusion
)

// String returns the rule category name, used in logs and metrics.
func (k Kind) String() string {
	switch k {
	case KindGreeting:
		return "greeting"
	case KindFarewell:
		return "farewell"
	case KindGratitude:
		return "gratitude"
	case KindIdentity:
		return "identity"
	case KindCapability:
		return "capability"
	case KindOffTopic:
		return "offtopic"
	case KindJoke:
		return "joke"
	case KindConfusion:
		return "confusion"
	}
	return "unknown"
}

type rule struct {
	kind      Kind
	matchers  []*regexp.Regexp
	responses []string
}

// rules is the prioritized pattern table. Earlier rules win; within a rule,
// matchers are tried in order.
var rules = []rule{
	{
		kind: KindGreeting,
		matchers: []*regexp.Regexp{
			regexp.MustCompile(`^(hi|hey|hello|howdy|yo|hiya)\b`),
			regexp.MustCompile(`^good (morning|afternoon|evening)\b`),
			regexp.MustCompile(`^what'?s up\??$`),
		},
		responses: []string{
			"Hey! What would you like to know from your notes?",
			"Hello! Ask me anything about your notes.",
			"Hi there! I'm ready when you are.",
		},
	},
	{
		kind: KindFarewell,
		matchers: []*regexp.Regexp{
			regexp.MustCompile(`^(bye|goodbye|see you|see ya|later|good night)\b`),
			regexp.MustCompile(`^i('| a)?m (done|leaving|off)\b`),
		},
		responses: []string{
			"See you later! Your notes will be here.",
			"Goodbye! Come back anytime.",
		},
	},
	{
		kind: KindGratitude,
		matchers: []*regexp.Regexp{
			regexp.MustCompile(`^(thanks|thank you|thx|ty|cheers)\b`),
			regexp.MustCompile(`\bappreciate (it|that|you)\b`),
		},
		responses: []string{
			"You're welcome!",
			"Happy to help!",
			"Anytime!",
		},
	},
	{
		kind: KindIdentity,
		matchers: []*regexp.Regexp{
			regexp.MustCompile(`^who are you\??$`),
			regexp.MustCompile(`^what are you\??$`),
			regexp.MustCompile(`^what('?s| is) your name\??$`),
		},
		responses: []string{
			"I'm your notes assistant. I answer questions using what you've written down.",
			"I'm the assistant living inside your notes. Ask me about anything you've saved.",
		},
	},
	{
		kind: KindCapability,
		matchers: []*regexp.Regexp{
			regexp.MustCompile(`^what can you do\??$`),
			regexp.MustCompile(`^(how do you work|help)\??$`),
			regexp.MustCompile(`^what do you know\??$`),
		},
		responses: []string{
			"Ask me questions in plain language and I'll answer from your notes, citing where I found things.",
			"I search your notes for anything relevant to your question and ground my answer in what I find.",
		},
	},
	{
		kind: KindOffTopic,
		matchers: []*regexp.Regexp{
			regexp.MustCompile(`\b(weather|stock price|sports score)s?\b.*\b(today|now|current)\b`),
			regexp.MustCompile(`^(order|buy) .* for me\b`),
		},
		responses: []string{
			"That's outside my reach — I only know what's in your notes. Anything there I can help with?",
		},
	},
	{
		kind: KindJoke,
		matchers: []*regexp.Regexp{
			regexp.MustCompile(`tell me a joke`),
			regexp.MustCompile(`^(say|make me laugh|something funny)\b`),
		},
		responses: []string{
			"Why did the note-taker break up with the whiteboard? Too easy to wipe the memories.",
			"I tried writing a joke about my notes, but it didn't stick.",
		},
	},
	{
		kind: KindConfusion,
		matchers: []*regexp.Regexp{
			regexp.MustCompile(`^(huh|what|wat|\?+)\??$`),
			regexp.MustCompile(`^i don'?t understand\b`),
		},
		responses: []string{
			"Sorry, I lost you there. Could you rephrase the question?",
			"Not sure I follow — try asking about something in your notes.",
		},
	},
}

// Match checks question against the rule table. On a hit it returns a
// response and the matched category. The response is picked
// pseudo-randomly but deterministically from the rule's pool, seeded by
// the question text.
func Match(question string) (string, Kind, bool) {
	q := strings.ToLower(strings.TrimSpace(question))
	if q == "" {
		return "", 0, false
	}
	for _, r := range rules {
		for _, m := range r.matchers {
			if m.MatchString(q) {
				return pick(r.responses, q), r.kind, true
			}
		}
	}
	return "", 0, false
}

func pick(responses []string, seed string) string {
	h := fnv.New32a()
	h.Write([]byte(seed))
	return responses[int(h.Sum32())%len(responses)]
}
