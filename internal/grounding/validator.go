// Package grounding independently verifies a generated answer against the
// entity registry. It extracts factual claims (URLs, acronym tokens, quoted
// names), scores each against the corpus, and judges the answer valid or
// likely hallucinated. Grounding failures never block output: the engine
// downgrades the answer through local correction instead.
package grounding

import (
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/mossline/notewise/internal/registry"
	"github.com/mossline/notewise/internal/textutil"
)

// ClaimKind classifies an extracted claim.
type ClaimKind string

const (
	ClaimURL    ClaimKind = "url"
	ClaimEntity ClaimKind = "entity"
)

// Severity grades a validation issue.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Claim is a factual assertion extracted from the answer.
type Claim struct {
	Kind       ClaimKind
	Value      string
	Verified   bool
	Confidence float64
	// SourceNoteID is set when the claim resolved to a corpus entity.
	SourceNoteID string
}

// Citation links a verified claim back to its source note.
type Citation struct {
	NoteID    string
	NoteTitle string
	Entity    string
}

// Issue explains why a claim could not be fully verified.
type Issue struct {
	Severity Severity
	Claim    string
	Message  string
}

// Result is the per-answer validation verdict. Pure and ephemeral.
type Result struct {
	Valid      bool
	Confidence float64
	Claims     []Claim
	Citations  []Citation
	Issues     []Issue
}

// Confidence levels assigned per claim outcome.
const (
	confExact       = 1.0
	confSubstring   = 0.8
	confEditBase    = 0.7
	confPhonetic    = 0.6
	confDomainMatch = 0.5
	confAmbiguous   = 0.0
	// gapThreshold is the confidence lead a best candidate needs over the
	// runner-up to win without a tiebreaker.
	gapThreshold = 0.2
)

// Validator scores answers against a registry.
type Validator struct {
	minConfidence float64
	log           *zap.Logger
}

// New creates a Validator. minConfidence <= 0 selects the default of 0.6.
func New(minConfidence float64, log *zap.Logger) *Validator {
	if minConfidence <= 0 {
		minConfidence = 0.6
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Validator{minConfidence: minConfidence, log: log}
}

var (
	answerURLRE = regexp.MustCompile(`https?://[^\s)>\]"']+`)
	acronymRE   = regexp.MustCompile(`\b[A-Z][A-Z0-9]{1,5}\b`)
	quotedRE    = regexp.MustCompile(`"([^"]{2,60})"|'([^']{2,60})'`)
)

// Validate extracts claims from the answer and checks each against the
// registry. hints are conversation-derived context strings used to break
// entity-disambiguation ties.
func (v *Validator) Validate(answer string, reg *registry.Registry, hints []string) Result {
	res := Result{}

	for _, raw := range answerURLRE.FindAllString(answer, -1) {
		res.record(v.checkURL(strings.Trim(raw, ".,;"), reg))
	}

	seen := map[string]bool{}
	for _, tok := range acronymRE.FindAllString(answer, -1) {
		if seen[tok] {
			continue
		}
		seen[tok] = true
		res.record(v.checkEntity(tok, reg, hints))
	}
	for _, m := range quotedRE.FindAllStringSubmatch(answer, -1) {
		quoted := m[1]
		if quoted == "" {
			quoted = m[2]
		}
		if seen[quoted] {
			continue
		}
		seen[quoted] = true
		res.record(v.checkEntity(quoted, reg, hints))
	}

	if len(res.Claims) == 0 {
		res.Confidence = 1.0
	} else {
		total := 0.0
		for _, c := range res.Claims {
			total += c.Confidence
		}
		res.Confidence = total / float64(len(res.Claims))
	}

	critical := false
	for _, issue := range res.Issues {
		if issue.Severity == SeverityCritical {
			critical = true
			break
		}
	}
	res.Valid = res.Confidence >= v.minConfidence && !critical

	v.log.Debug("answer validated",
		zap.Int("claims", len(res.Claims)),
		zap.Float64("confidence", res.Confidence),
		zap.Bool("valid", res.Valid))
	return res
}

func (res *Result) record(claim Claim, citation *Citation, issue *Issue) {
	res.Claims = append(res.Claims, claim)
	if citation != nil {
		res.Citations = append(res.Citations, *citation)
	}
	if issue != nil {
		res.Issues = append(res.Issues, *issue)
	}
}

// checkURL verifies a URL claim: an exact registry hit is fully verified;
// a note URL sharing the claim's host downgrades to a partial match; no
// match at all is a likely hallucination.
func (v *Validator) checkURL(claim string, reg *registry.Registry) (Claim, *Citation, *Issue) {
	if e, ok := reg.LookupURL(claim); ok {
		return Claim{Kind: ClaimURL, Value: claim, Verified: true, Confidence: confExact, SourceNoteID: e.NoteID},
			&Citation{NoteID: e.NoteID, NoteTitle: e.NoteTitle, Entity: e.Value}, nil
	}

	if host := hostOf(claim); host != "" {
		for _, e := range reg.URLs() {
			if hostOf(e.Value) == host {
				return Claim{Kind: ClaimURL, Value: claim, Verified: false, Confidence: confDomainMatch, SourceNoteID: e.NoteID},
					&Citation{NoteID: e.NoteID, NoteTitle: e.NoteTitle, Entity: e.Value},
					&Issue{Severity: SeverityWarning, Claim: claim,
						Message: "URL not found verbatim; a note references the same domain"}
			}
		}
	}

	return Claim{Kind: ClaimURL, Value: claim, Confidence: 0}, nil,
		&Issue{Severity: SeverityCritical, Claim: claim,
			Message: "URL does not appear in any note; likely hallucinated"}
}

// checkEntity fuzzily matches an entity claim against the registry, then
// disambiguates: a clear confidence-gap winner is accepted; otherwise
// conversation hints break the tie; unresolved ambiguity yields no
// verified claim and an explanatory issue.
func (v *Validator) checkEntity(claim string, reg *registry.Registry, hints []string) (Claim, *Citation, *Issue) {
	type scored struct {
		entity *registry.Entity
		conf   float64
	}
	var candidates []scored

	normClaim := registry.Normalize(claim)
	claimCode := textutil.Soundex(claim)
	for _, e := range reg.All() {
		normVal := registry.Normalize(e.Value)
		var conf float64
		switch {
		case normVal == normClaim:
			conf = confExact
		case strings.Contains(normVal, normClaim) || strings.Contains(normClaim, normVal):
			conf = confSubstring
		case textutil.WithinDistance(normVal, normClaim, 2):
			conf = confEditBase - 0.1*float64(textutil.Levenshtein(normVal, normClaim)-1)
		case claimCode != "" && claimCode == textutil.Soundex(e.Value):
			conf = confPhonetic
		default:
			continue
		}
		candidates = append(candidates, scored{entity: e, conf: conf})
	}

	if len(candidates) == 0 {
		return Claim{Kind: ClaimEntity, Value: claim, Confidence: 0}, nil,
			&Issue{Severity: SeverityWarning, Claim: claim,
				Message: "entity does not appear in any note"}
	}

	best, second := candidates[0], scored{}
	for _, c := range candidates[1:] {
		if c.conf > best.conf {
			second = best
			best = c
		} else if c.conf > second.conf {
			second = c
		}
	}

	if len(candidates) > 1 && best.conf-second.conf < gapThreshold {
		// Too close to call on string evidence alone; let conversation
		// context decide.
		if winner := pickByHints(best.entity, second.entity, hints); winner != nil {
			best = scored{entity: winner, conf: best.conf}
		} else {
			return Claim{Kind: ClaimEntity, Value: claim, Confidence: confAmbiguous}, nil,
				&Issue{Severity: SeverityWarning, Claim: claim,
					Message: "entity is ambiguous between multiple notes"}
		}
	}

	return Claim{Kind: ClaimEntity, Value: claim, Verified: best.conf >= confSubstring,
			Confidence: best.conf, SourceNoteID: best.entity.NoteID},
		&Citation{NoteID: best.entity.NoteID, NoteTitle: best.entity.NoteTitle, Entity: best.entity.Value}, nil
}

// pickByHints returns the candidate whose source note or surrounding
// context mentions a hint term, or nil when hints settle nothing.
func pickByHints(a, b *registry.Entity, hints []string) *registry.Entity {
	for _, hint := range hints {
		for _, tok := range textutil.SignificantTokens(hint) {
			aHit := entityMentions(a, tok)
			bHit := b != nil && entityMentions(b, tok)
			if aHit && !bHit {
				return a
			}
			if bHit && !aHit {
				return b
			}
		}
	}
	return nil
}

func entityMentions(e *registry.Entity, token string) bool {
	if e == nil {
		return false
	}
	return strings.Contains(strings.ToLower(e.NoteTitle), token) ||
		strings.Contains(strings.ToLower(e.Context), token)
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.")
}
