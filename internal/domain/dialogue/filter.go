package dialogue

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/janhq/dialogue-bot/internal/domain/content"
	"github.com/janhq/dialogue-bot/internal/domain/user"
)

var resumePlaceholder = regexp.MustCompile(`(?i)\$\{RESUME_MESSAGE\}`)

// Terms are the phrase and word lists that trigger a stop. Terms match the
// whole normalised message; words match any single token.
type Terms struct {
	StopTerms   []string
	StopWords   []string
	CrisisTerms []string
	CrisisWords []string
}

// Merge returns the union of t and o.
func (t Terms) Merge(o Terms) Terms {
	return Terms{
		StopTerms:   appendUnique(t.StopTerms, o.StopTerms),
		StopWords:   appendUnique(t.StopWords, o.StopWords),
		CrisisTerms: appendUnique(t.CrisisTerms, o.CrisisTerms),
		CrisisWords: appendUnique(t.CrisisWords, o.CrisisWords),
	}
}

// Matches reports whether text hits any stop or crisis term or word.
func (t Terms) Matches(text string) bool {
	norm := normalize(text)
	if norm == "" {
		return false
	}
	for _, list := range [][]string{t.StopTerms, t.CrisisTerms} {
		for _, term := range list {
			if n := normalize(term); n != "" && n == norm {
				return true
			}
		}
	}
	tokens := tokenize(text)
	for _, list := range [][]string{t.StopWords, t.CrisisWords} {
		for _, w := range list {
			w = normalize(w)
			if w == "" {
				continue
			}
			if _, ok := tokens[w]; ok {
				return true
			}
		}
	}
	return false
}

// IsStop reports whether msg asks the bot to stop, either by text or by the
// reserved stop quick reply.
func (e *Engine) IsStop(msg user.InboundMessage, terms Terms) bool {
	if d, ok := msg.Directive(); ok && e.settings.RetryStopID != "" && d.ID == e.settings.RetryStopID {
		return true
	}
	return terms.Matches(msg.Text)
}

// IsResume reports whether msg is the resume phrase.
func (e *Engine) IsResume(g *content.Graph, msg user.InboundMessage) bool {
	phrase := strings.TrimSpace(e.ResumeText(g))
	return phrase != "" && strings.EqualFold(strings.TrimSpace(msg.Text), phrase)
}

// IsResetConfirm reports whether msg confirms a full user reset.
func (e *Engine) IsResetConfirm(msg user.InboundMessage) bool {
	d, ok := msg.Directive()
	return ok && e.settings.ResetUserConfirmID != "" && d.ID == e.settings.ResetUserConfirmID
}

// ResumeText returns the phrase that lifts a stop.
func (e *Engine) ResumeText(g *content.Graph) string {
	if n, ok := g.Message(e.settings.ResumeMessageID); ok && strings.TrimSpace(n.Text) != "" {
		return n.Text
	}
	return e.settings.ResumePhrase
}

// StopReplyText returns the confirmation sent after a stop, with the resume
// placeholder filled in.
func (e *Engine) StopReplyText(g *content.Graph) string {
	text := e.settings.StopReply
	if n, ok := g.Message(e.settings.StopMessageID); ok && strings.TrimSpace(n.Text) != "" {
		text = n.Text
	}
	resume := e.ResumeText(g)
	return resumePlaceholder.ReplaceAllLiteralString(text, resume)
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
	return strings.Join(strings.Fields(s), " ")
}

func tokenize(s string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, f := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	}) {
		out[f] = struct{}{}
	}
	return out
}

func appendUnique(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, s := range list {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}
