package manager

import (
	"strings"
)

type tokenKind int

const (
	tokWord tokenKind = iota
	tokQuoted
	tokComment
	tokSpace
	tokSemicolon
	tokOther
)

type token struct {
	kind tokenKind
	text string
}

// tokenize splits SQL text into words, quoted runs, comments, whitespace and
// punctuation. Unterminated quotes and comments run to the end of the input.
func tokenize(src string) []token {
	var toks []token
	for i := 0; i < len(src); {
		c := src[i]
		start := i
		switch {
		case c == '\'' || c == '"' || c == '`':
			i = scanQuoted(src, i, c)
			toks = append(toks, token{tokQuoted, src[start:i]})
		case c == '[':
			if end := strings.IndexByte(src[i:], ']'); end >= 0 {
				i += end + 1
			} else {
				i = len(src)
			}
			toks = append(toks, token{tokQuoted, src[start:i]})
		case c == '-' && i+1 < len(src) && src[i+1] == '-':
			if end := strings.IndexByte(src[i:], '\n'); end >= 0 {
				i += end
			} else {
				i = len(src)
			}
			toks = append(toks, token{tokComment, src[start:i]})
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			if end := strings.Index(src[i+2:], "*/"); end >= 0 {
				i += end + 4
			} else {
				i = len(src)
			}
			toks = append(toks, token{tokComment, src[start:i]})
		case isSpace(c):
			for i < len(src) && isSpace(src[i]) {
				i++
			}
			toks = append(toks, token{tokSpace, src[start:i]})
		case isWordByte(c):
			for i < len(src) && isWordByte(src[i]) {
				i++
			}
			toks = append(toks, token{tokWord, src[start:i]})
		case c == ';':
			i++
			toks = append(toks, token{tokSemicolon, ";"})
		default:
			i++
			toks = append(toks, token{tokOther, src[start:i]})
		}
	}
	return toks
}

// scanQuoted returns the index just past the quoted run opened at src[i].
// A doubled quote character is an escaped quote.
func scanQuoted(src string, i int, quote byte) int {
	i++
	for i < len(src) {
		if src[i] == quote {
			if i+1 < len(src) && src[i+1] == quote {
				i += 2
				continue
			}
			return i + 1
		}
		i++
	}
	return len(src)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func isWordByte(c byte) bool {
	return c == '_' || c == '$' || c >= 0x80 ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// leadingKeyword returns the first word of stmt, upper-cased, ignoring
// leading whitespace and comments.
func leadingKeyword(stmt string) string {
	for _, tok := range tokenize(stmt) {
		switch tok.kind {
		case tokSpace, tokComment:
			continue
		case tokWord:
			return strings.ToUpper(tok.text)
		default:
			return ""
		}
	}
	return ""
}

var queryKeywords = map[string]bool{
	"SELECT":  true,
	"WITH":    true,
	"VALUES":  true,
	"EXPLAIN": true,
	"PRAGMA":  true,
}

// ClassifyStatement decides the result shape of stmt from its leading keyword.
func ClassifyStatement(stmt string) Kind {
	if queryKeywords[leadingKeyword(stmt)] {
		return KindQuery
	}
	return KindExec
}

var transactionKeywords = map[string]bool{
	"BEGIN":     true,
	"COMMIT":    true,
	"END":       true,
	"ROLLBACK":  true,
	"SAVEPOINT": true,
	"RELEASE":   true,
}

func isTransactionControl(stmt string) bool {
	return transactionKeywords[leadingKeyword(stmt)]
}

// stripLeadingComments drops whitespace and comments before the first token
// of stmt. A comment-only statement strips to "".
func stripLeadingComments(stmt string) string {
	toks := tokenize(stmt)
	for i, tok := range toks {
		if tok.kind != tokSpace && tok.kind != tokComment {
			return strings.TrimSpace(joinTokens(toks[i:]))
		}
	}
	return ""
}

func joinTokens(toks []token) string {
	var b strings.Builder
	for _, tok := range toks {
		b.WriteString(tok.text)
	}
	return b.String()
}

// triggerScope tracks whether the tokens seen so far are inside the body of
// a CREATE TRIGGER, where semicolons do not end the statement.
type triggerScope struct {
	words []string
	depth int
}

func (s *triggerScope) observe(word string) {
	word = strings.ToUpper(word)
	s.words = append(s.words, word)
	if !isTriggerHead(s.words) {
		return
	}
	switch word {
	case "BEGIN", "CASE":
		s.depth++
	case "END":
		if s.depth > 0 {
			s.depth--
		}
	}
}

func (s *triggerScope) inBody() bool {
	return s.depth > 0 && isTriggerHead(s.words)
}

func (s *triggerScope) reset() {
	s.words = s.words[:0]
	s.depth = 0
}

// SplitStatements splits a script into candidate statements on terminating
// semicolons. Semicolons inside literals, quoted identifiers, comments and
// trigger bodies do not terminate a statement. Candidates are trimmed and
// blank candidates are dropped; comments are kept with the statement that
// follows them.
func SplitStatements(script string) []string {
	var (
		out     []string
		current []token
		scope   triggerScope
	)

	flush := func() {
		if stmt := strings.TrimSpace(joinTokens(current)); stmt != "" {
			out = append(out, stmt)
		}
		current = current[:0]
		scope.reset()
	}

	for _, tok := range tokenize(script) {
		if tok.kind == tokSemicolon && !scope.inBody() {
			flush()
			continue
		}
		current = append(current, tok)
		if tok.kind == tokWord {
			scope.observe(tok.text)
		}
	}
	flush()
	return out
}

// IsComplete reports whether script ends with a terminating semicolon, so an
// interactive reader knows it can stop collecting lines. Trailing whitespace
// and comments are ignored.
func IsComplete(script string) bool {
	var scope triggerScope
	complete := false
	for _, tok := range tokenize(script) {
		switch tok.kind {
		case tokSpace, tokComment:
			continue
		case tokSemicolon:
			if scope.inBody() {
				complete = false
				continue
			}
			scope.reset()
			complete = true
			continue
		case tokWord:
			scope.observe(tok.text)
		}
		complete = false
	}
	return complete
}

// isTriggerHead reports whether the words seen so far open a CREATE TRIGGER.
func isTriggerHead(words []string) bool {
	if len(words) < 2 || words[0] != "CREATE" {
		return false
	}
	if words[1] == "TRIGGER" {
		return true
	}
	return len(words) >= 3 && (words[1] == "TEMP" || words[1] == "TEMPORARY") && words[2] == "TRIGGER"
}

// FlattenSQL renders stmt on a single line: comments are removed and
// whitespace outside literals and quoted identifiers collapses to one space.
// Newlines inside string literals are preserved.
func FlattenSQL(stmt string) string {
	return flattenTokens(stmt, nil)
}

// flattenTokens is FlattenSQL with an optional rewrite of quoted tokens.
func flattenTokens(stmt string, quoted func(string) string) string {
	var b strings.Builder
	pendingSpace := false
	for _, tok := range tokenize(stmt) {
		switch tok.kind {
		case tokSpace, tokComment:
			pendingSpace = true
			continue
		}
		if pendingSpace && b.Len() > 0 {
			b.WriteByte(' ')
		}
		pendingSpace = false
		if tok.kind == tokQuoted && quoted != nil {
			b.WriteString(quoted(tok.text))
			continue
		}
		b.WriteString(tok.text)
	}
	return b.String()
}

// flattenWhitespace collapses every whitespace run for display purposes.
func flattenWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
