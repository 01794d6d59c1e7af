// Package textstats computes the readability and social-media metrics the
// analysis API returns for a piece of text.
package textstats

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/jdkato/prose/v2"
	"github.com/jonreiter/govader"

	"github.com/Shimizu-Technology/content-analyzer/internal/models"
)

// minScoredWords is the smallest text that gets Flesch and grade scores;
// shorter texts produce meaningless numbers.
const minScoredWords = 10

// negativeTone is the compound sentiment below which the text reads as negative.
const negativeTone = -0.3

// vader loads its lexicon on first use.
var vader = sync.OnceValue(govader.NewSentimentIntensityAnalyzer)

var (
	wordRe    = regexp.MustCompile(`[\p{L}\p{N}_]+`)
	sentRe    = regexp.MustCompile(`[.!?]+\s*`)
	urlRe     = regexp.MustCompile(`https?://\S+`)
	hashtagRe = regexp.MustCompile(`(?:^|\s)(#[\p{L}\p{N}_]+)`)
	mentionRe = regexp.MustCompile(`(?:^|\s)(@[\p{L}\p{N}_]+)`)
	emojiRe   = regexp.MustCompile(`[\x{1F600}-\x{1F64F}\x{1F300}-\x{1F5FF}\x{1F680}-\x{1F6FF}\x{1F1E0}-\x{1F1FF}\x{2700}-\x{27BF}\x{1F900}-\x{1F9FF}]`)
)

// Suggestion texts, in the order they are checked.
const (
	SuggestMoreContext  = "Add more context: posts under ~10 words usually underperform."
	SuggestShorter      = "Shorten sentences for scannability (aim for < 20 words)."
	SuggestSimplify     = "Simplify wording to improve readability (Flesch < 60)."
	SuggestEmoji        = "Consider 1-2 relevant emojis to add personality (avoid overuse)."
	SuggestHashtags     = "Add 2-5 targeted hashtags to improve discovery."
	SuggestCallToAction = "Include a clear call-to-action (e.g., 'Learn more', 'Check the link')."
	SuggestLink         = "Add a relevant link or mention where to find more info."
	SuggestTone         = "Tone seems negative: reframe to be more constructive or positive."
)

// Analyze computes Metrics for text. It never fails; empty text yields zero
// counts and every applicable suggestion.
func Analyze(text string) *models.Metrics {
	clean := strings.TrimSpace(text)

	words := wordRe.FindAllString(clean, -1)
	wordCount := len(words)
	sentenceCount := countSentences(clean)

	avg := 0.0
	if sentenceCount > 0 {
		avg = float64(wordCount) / float64(sentenceCount)
	}

	m := &models.Metrics{
		WordCount:      wordCount,
		CharCount:      utf8.RuneCountInString(clean),
		AvgSentenceLen: round2(avg),
		EmojiCount:     len(emojiRe.FindAllString(clean, -1)),
		Hashtags:       submatches(hashtagRe, clean),
		Mentions:       submatches(mentionRe, clean),
		Links:          nonNil(urlRe.FindAllString(clean, -1)),
		Sentiment:      sentiment(clean),
	}

	if wordCount > minScoredWords && sentenceCount > 0 {
		syl := 0
		for _, w := range words {
			syl += Syllables(w)
		}
		wps := float64(wordCount) / float64(sentenceCount)
		spw := float64(syl) / float64(wordCount)

		flesch := round2(206.835 - 1.015*wps - 84.6*spw)
		grade := GradeBand(0.39*wps + 11.8*spw - 15.59)
		m.FleschReadingEase = &flesch
		m.ReadabilityGrade = &grade
	}

	m.Suggestions = suggestions(clean, m)
	return m
}

// sentiment scores text with VADER. Empty text is neutral.
func sentiment(text string) *models.Sentiment {
	if text == "" {
		return &models.Sentiment{}
	}
	s := vader().PolarityScores(text)
	return &models.Sentiment{
		Negative: s.Negative,
		Neutral:  s.Neutral,
		Positive: s.Positive,
		Compound: s.Compound,
	}
}

// countSentences uses prose's segmenter, falling back to punctuation
// splitting if the document cannot be built.
func countSentences(text string) int {
	if text == "" {
		return 0
	}

	doc, err := prose.NewDocument(text,
		prose.WithTagging(false),
		prose.WithExtraction(false),
	)
	if err == nil {
		n := 0
		for _, s := range doc.Sentences() {
			if strings.TrimSpace(s.Text) != "" {
				n++
			}
		}
		if n > 0 {
			return n
		}
	}

	n := 0
	for _, s := range sentRe.Split(text, -1) {
		if strings.TrimSpace(s) != "" {
			n++
		}
	}
	return n
}

func suggestions(clean string, m *models.Metrics) []string {
	out := []string{}
	if m.WordCount < 10 {
		out = append(out, SuggestMoreContext)
	}
	if m.AvgSentenceLen > 25 {
		out = append(out, SuggestShorter)
	}
	if m.FleschReadingEase != nil && *m.FleschReadingEase < 60 {
		out = append(out, SuggestSimplify)
	}
	if m.EmojiCount == 0 {
		out = append(out, SuggestEmoji)
	}
	if len(m.Hashtags) < 1 {
		out = append(out, SuggestHashtags)
	}
	lower := strings.ToLower(clean)
	if !strings.Contains(lower, "call") && !strings.Contains(lower, "check") && !strings.Contains(lower, "learn") {
		out = append(out, SuggestCallToAction)
	}
	if len(m.Links) == 0 {
		out = append(out, SuggestLink)
	}
	if m.Sentiment != nil && m.Sentiment.Compound < negativeTone {
		out = append(out, SuggestTone)
	}
	return out
}

// Syllables estimates the syllable count of an English word by counting
// vowel groups, discounting a silent trailing "e".
func Syllables(word string) int {
	w := strings.ToLower(word)
	count := 0
	prevVowel := false
	letters := 0
	for _, r := range w {
		if !unicode.IsLetter(r) {
			prevVowel = false
			continue
		}
		letters++
		vowel := strings.ContainsRune("aeiouy", r)
		if vowel && !prevVowel {
			count++
		}
		prevVowel = vowel
	}
	if count > 1 && strings.HasSuffix(w, "e") && !strings.HasSuffix(w, "le") {
		count--
	}
	if count == 0 {
		return 1
	}
	return count
}

// GradeBand renders a grade level as a two-grade band, e.g. "7th and 8th grade".
func GradeBand(level float64) string {
	upper := int(math.Round(level))
	if upper < 2 {
		upper = 2
	}
	if upper > 18 {
		upper = 18
	}
	lower := upper - 1
	return fmt.Sprintf("%s and %s grade", Ordinal(lower), Ordinal(upper))
}

// Ordinal formats n with its English suffix.
func Ordinal(n int) string {
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}

func submatches(re *regexp.Regexp, s string) []string {
	out := []string{}
	for _, m := range re.FindAllStringSubmatch(s, -1) {
		out = append(out, m[1])
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
