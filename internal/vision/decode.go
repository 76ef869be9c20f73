package vision

import (
	"encoding/json"
	"strings"

	"github.com/adgedenkers/mythos-arcturus-sub000/internal/model"
)

// DecodeListing extracts a structured Listing from free-form model output.
// Model text is unreliable: the JSON payload is often wrapped in a fenced
// code block or surrounding prose. Parsing degrades in stages:
//
//  1. strip a fenced code block wrapper if present
//  2. strict parse of the remainder
//  3. parse of the first balanced {...} span in the text
//  4. degraded fallback carrying the raw text with ParseError set
//
// It never fails hard; the caller decides whether a degraded result means
// retry or accept.
func DecodeListing(raw string) *model.Listing {
	text := stripFences(strings.TrimSpace(raw))

	if l := tryParse(text); l != nil {
		return l
	}
	if span := firstJSONObject(text); span != "" && span != text {
		if l := tryParse(span); l != nil {
			return l
		}
	}
	return &model.Listing{RawText: raw, ParseError: true}
}

func tryParse(s string) *model.Listing {
	var l model.Listing
	if err := json.Unmarshal([]byte(s), &l); err != nil {
		return nil
	}
	normalize(&l)
	return &l
}

// stripFences removes a markdown code fence wrapper (``` or ```json).
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	idx := strings.Index(s, "\n")
	if idx == -1 {
		return s
	}
	s = s[idx+1:]
	if end := strings.LastIndex(s, "```"); end != -1 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}

// firstJSONObject returns the first balanced {...} span in s, honoring
// string literals and escapes, or "" if none closes.
func firstJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// normalize canonicalizes model-reported fields. Values outside the closed
// enumerations are dropped rather than guessed; the confidence score is
// clamped to [0,1].
func normalize(l *model.Listing) {
	if l.Condition != nil {
		c := strings.ToLower(strings.TrimSpace(*l.Condition))
		c = strings.ReplaceAll(c, " ", "_")
		c = strings.ReplaceAll(c, "-", "_")
		if model.ValidCondition(c) {
			l.Condition = &c
		} else {
			l.Condition = nil
		}
	}
	if l.Confidence != nil {
		v := *l.Confidence
		if v < 0 {
			v = 0
		}
		if v > 1 {
			v = 1
		}
		l.Confidence = &v
	}
	if l.EstimatedPrice != nil && *l.EstimatedPrice < 0 {
		l.EstimatedPrice = nil
	}
}
