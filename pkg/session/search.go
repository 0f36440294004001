package session

import (
	"fmt"
	"regexp"

	"github.com/fablecraft/gofable/internal/store"
)

// Options control how search terms are matched.
type Options struct {
	MatchCase bool
	WholeWord bool
}

// ChapterMatch reports the hits inside one chapter.
type ChapterMatch struct {
	ChapterID string
	Title     string
	Count     int
}

// ReplaceResult summarizes a global replace.
type ReplaceResult struct {
	TotalMatches     int
	ChaptersAffected int
}

// compilePattern turns a literal search term into a regexp honoring the
// match options. Terms are always treated literally, never as regex syntax.
func compilePattern(term string, opts Options) (*regexp.Regexp, error) {
	if term == "" {
		return nil, fmt.Errorf("empty search term")
	}
	expr := regexp.QuoteMeta(term)
	if opts.WholeWord {
		expr = `\b` + expr + `\b`
	}
	if !opts.MatchCase {
		expr = `(?i)` + expr
	}
	return regexp.Compile(expr)
}

// SearchGlobal counts occurrences of a term across all prose chapters of the
// current story. Section headers have no searchable body and are skipped.
func (s *Session) SearchGlobal(term string, opts Options) ([]ChapterMatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return nil, ErrNoStory
	}
	re, err := compilePattern(term, opts)
	if err != nil {
		return nil, err
	}

	var matches []ChapterMatch
	for _, ch := range s.current.Chapters {
		if ch.Type == store.ChapterTypeHeader {
			continue
		}
		n := len(re.FindAllStringIndex(ch.Content, -1))
		if n > 0 {
			matches = append(matches, ChapterMatch{ChapterID: ch.ID, Title: ch.Title, Count: n})
		}
	}
	return matches, nil
}

// ReplaceGlobal substitutes every occurrence of term across prose chapters
// and commits the whole new chapter list as one write.
func (s *Session) ReplaceGlobal(term, replacement string, opts Options) (ReplaceResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res ReplaceResult
	if s.current == nil {
		return res, ErrNoStory
	}
	re, err := compilePattern(term, opts)
	if err != nil {
		return res, err
	}

	next := cloneStory(s.current)
	for i, ch := range next.Chapters {
		if ch.Type == store.ChapterTypeHeader {
			continue
		}
		n := len(re.FindAllStringIndex(ch.Content, -1))
		if n == 0 {
			continue
		}
		next.Chapters[i].Content = re.ReplaceAllLiteralString(ch.Content, replacement)
		res.TotalMatches += n
		res.ChaptersAffected++
	}
	if res.TotalMatches == 0 {
		return res, nil
	}
	s.commitLocked(next)
	return res, nil
}
