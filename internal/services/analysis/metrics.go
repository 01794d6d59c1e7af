package analysis

import (
	"encoding/json"
	"strconv"

	"github.com/Shimizu-Technology/content-analyzer/internal/models"
)

// MetricsView reads the fields the Analyze page shows out of a raw metrics
// object. Fields that are missing or carry an unexpected type are left empty,
// so any JSON object yields a view. Anything else yields nil.
func MetricsView(raw json.RawMessage) *models.Metrics {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil
	}

	m := &models.Metrics{
		WordCount:         int(number(fields["word_count"])),
		CharCount:         int(number(fields["char_count"])),
		AvgSentenceLen:    number(fields["avg_sentence_len"]),
		FleschReadingEase: optNumber(fields["flesch_reading_ease"]),
		ReadabilityGrade:  optText(fields["readability_grade"]),
		EmojiCount:        int(number(fields["emoji_count"])),
		Hashtags:          texts(fields["hashtags"]),
		Mentions:          texts(fields["mentions"]),
		Links:             texts(fields["links"]),
		Suggestions:       texts(fields["suggestions"]),
	}
	if s, ok := fields["sentiment"].(map[string]any); ok {
		m.Sentiment = &models.Sentiment{
			Negative: number(s["neg"]),
			Neutral:  number(s["neu"]),
			Positive: number(s["pos"]),
			Compound: number(s["compound"]),
		}
	}
	return m
}

func number(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		f, _ := strconv.ParseFloat(n, 64)
		return f
	}
	return 0
}

func optNumber(v any) *float64 {
	switch v.(type) {
	case float64, string:
		f := number(v)
		return &f
	}
	return nil
}

func optText(v any) *string {
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return nil
	}
	return &s
}

func texts(v any) []string {
	list, _ := v.([]any)
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s := optText(item); s != nil {
			out = append(out, *s)
		}
	}
	return out
}
