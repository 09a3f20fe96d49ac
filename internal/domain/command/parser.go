package command

import (
	"homehub/internal/domain/model"
	"regexp"
	"strings"
	"unicode"
)

// Match is a recognized command. Target is a device id or model.TargetAll.
type Match struct {
	Action    model.Action
	Target    string
	Qualifier string // optional word before the device name, e.g. "bedroom"
	Alias     string // the alias text that matched
}

var synonyms = map[string]string{
	"switch": "turn",
	"power":  "turn",
	"shut":   "turn",
}

var triggerRe = regexp.MustCompile(`\bturn (on|off)\b`)

// Normalize lowercases, drops punctuation and maps verb synonyms onto "turn".
func Normalize(s string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r == '\'':
			return -1
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			return unicode.ToLower(r)
		default:
			return ' '
		}
	}, s)
	words := strings.Fields(cleaned)
	for i, w := range words {
		if syn, ok := synonyms[w]; ok {
			words[i] = syn
		}
	}
	return strings.Join(words, " ")
}

type alias struct {
	text   string
	tokens []string
	target string
}

// Parser turns utterances into device commands using the catalog aliases.
type Parser struct {
	aliases []alias
}

func NewParser(catalog *model.Catalog) *Parser {
	p := &Parser{}
	for _, a := range catalog.Aliases() {
		target, _ := catalog.Resolve(a)
		p.aliases = append(p.aliases, alias{text: a, tokens: strings.Fields(a), target: target})
	}
	return p
}

// Parse finds a command in the utterance. When several "turn on/off"
// phrases are present, the last one that names a device wins.
func (p *Parser) Parse(utterance string) (Match, bool) {
	norm := Normalize(utterance)
	spans := triggerRe.FindAllStringSubmatchIndex(norm, -1)
	for i := len(spans) - 1; i >= 0; i-- {
		span := spans[i]
		action := model.ActionTurnOff
		if norm[span[2]:span[3]] == "on" {
			action = model.ActionTurnOn
		}
		tokens := skipArticle(strings.Fields(norm[span[1]:]))
		if m, ok := p.matchDevice(tokens); ok {
			m.Action = action
			return m, true
		}
	}
	return Match{}, false
}

func skipArticle(tokens []string) []string {
	if len(tokens) > 0 && tokens[0] == "the" {
		return tokens[1:]
	}
	return tokens
}

// matchDevice looks for an alias at the start of tokens, optionally after a
// single qualifier word. Of all candidates the one ending latest wins, and
// on a tie the longer alias wins, so "kitchen light" beats
// qualifier "kitchen" + "light".
func (p *Parser) matchDevice(tokens []string) (Match, bool) {
	var best Match
	bestEnd, bestLen := 0, 0
	found := false
	for skip := 0; skip <= 1 && skip < len(tokens); skip++ {
		for _, a := range p.aliases {
			if !hasPrefix(tokens[skip:], a.tokens) {
				continue
			}
			end := skip + len(a.tokens)
			if found && (end < bestEnd || (end == bestEnd && len(a.tokens) <= bestLen)) {
				continue
			}
			best = Match{Target: a.target, Alias: a.text}
			if skip == 1 {
				best.Qualifier = tokens[0]
			}
			bestEnd, bestLen, found = end, len(a.tokens), true
		}
	}
	return best, found
}

func hasPrefix(tokens, prefix []string) bool {
	if len(prefix) == 0 || len(prefix) > len(tokens) {
		return false
	}
	for i, t := range prefix {
		if tokens[i] != t {
			return false
		}
	}
	return true
}
