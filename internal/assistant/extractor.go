package assistant

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/hackgods/appointment-assistant/internal/directory"
)

var (
	emailRe    = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	isoDateRe  = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	longDateRe = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sep|oct|nov|dec)\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})\b`)
	meridiemRe = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?\s*([ap])\.?\s?m\b\.?`)
	clock24Re  = regexp.MustCompile(`\b([01]?\d|2[0-3]):([0-5]\d)\b`)
	namedRe    = regexp.MustCompile(`(?i)\b(?:my name is|name is|this is|i am|i'm|im)\s+([^,.!?;]+)`)
	drTitleRe  = regexp.MustCompile(`(?i)\bdr\.?\s+([a-z][a-z'\-]*)`)
	titledRe   = regexp.MustCompile(`(?i)\b(?:dr\.?|doctor)\s+([a-z][a-z'\-]*)`)
	weekdayRe  = regexp.MustCompile(`(?i)\b(next\s+)?(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	relDayRe   = regexp.MustCompile(`(?i)\b(today|tomorrow)\b`)
	resetRe    = regexp.MustCompile(`(?i)\b(start over|reset|cancel|never ?mind)\b`)
	listRe     = regexp.MustCompile(`(?i)\b(which doctors|what doctors|list (the )?doctors|available doctors|who is available|doctors available|show (me )?(the )?doctors)\b`)
)

var nameStopWords = map[string]bool{
	"and": true, "i": true, "want": true, "would": true, "like": true, "to": true,
	"with": true, "for": true, "on": true, "at": true, "looking": true, "here": true,
	"trying": true, "book": true, "need": true, "booking": true, "a": true, "an": true,
	"hi": true, "hello": true, "hey": true, "yes": true, "no": true, "thanks": true,
	"free": true, "available": true, "not": true, "ok": true, "okay": true, "sorry": true,
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday, "friday": time.Friday,
	"saturday": time.Saturday,
}

// KeywordExtractor pulls booking fields out of text with fixed patterns. It
// serves offline runs and stands in when the language model is unavailable.
type KeywordExtractor struct{}

func (KeywordExtractor) Extract(_ context.Context, req ExtractRequest) (Extraction, error) {
	text := req.Text
	var f Fields

	if m := emailRe.FindString(text); m != "" {
		f.Email = m
		text = strings.Replace(text, m, " ", 1)
	}

	named := namedRe.FindStringSubmatchIndex(text)

	// A bare surname only names a doctor outside the patient's own name.
	f.Doctor = titledDoctor(text, req.Doctors)
	if f.Doctor == "" && req.Awaiting != FieldPatientName {
		rest := text
		if named != nil {
			rest = text[:named[2]] + " " + text[named[3]:]
		}
		f.Doctor = matchDoctor(rest, req.Doctors)
	}
	f.Date = matchDate(text, req.Today)
	f.Time = matchTime(text)

	if named != nil {
		f.PatientName = trimName(text[named[2]:named[3]])
	} else if req.Awaiting == FieldPatientName && f.Doctor == "" && f.Date == "" && f.Time == "" {
		f.PatientName = trimName(text)
	}

	ex := Extraction{Intent: IntentOther, Fields: f}
	switch {
	case resetRe.MatchString(text):
		ex.Intent = IntentReset
	case listRe.MatchString(text):
		ex.Intent = IntentListDoctors
	case !f.IsEmpty() || strings.Contains(strings.ToLower(text), "appointment") || strings.Contains(strings.ToLower(text), "book"):
		ex.Intent = IntentBook
	}
	return ex, nil
}

// titledDoctor matches a doctor written with a title, as in "Dr. Khan" or
// "doctor ahmed".
func titledDoctor(text string, known []string) string {
	lower := strings.ToLower(text)
	for _, name := range known {
		if strings.Contains(lower, strings.ToLower(name)) {
			return name
		}
	}
	for _, m := range titledRe.FindAllStringSubmatch(text, -1) {
		word := strings.ToLower(m[1])
		for _, name := range known {
			if surname(name) == word {
				return name
			}
		}
	}
	// An unknown "Dr. X" is still returned so the patient hears it is not on the roster.
	if m := drTitleRe.FindStringSubmatch(text); m != nil {
		return "Dr. " + titleWord(m[1])
	}
	return ""
}

func matchDoctor(text string, known []string) string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r == '\'' || r == '-' || r > 127)
	})
	for _, name := range known {
		last := surname(name)
		for _, w := range words {
			if w == last {
				return name
			}
		}
	}
	return ""
}

func surname(name string) string {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return ""
	}
	return strings.ToLower(strings.Trim(parts[len(parts)-1], "."))
}

func matchDate(text string, today time.Time) string {
	if m := isoDateRe.FindString(text); m != "" {
		return m
	}
	if m := longDateRe.FindStringSubmatch(text); m != nil {
		raw := m[1] + " " + m[2] + ", " + m[3]
		if t, err := directory.ParseDate(titleWord(raw)); err == nil {
			return t.Format(directory.DateLayout)
		}
	}
	if today.IsZero() {
		return ""
	}
	base := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	if m := relDayRe.FindStringSubmatch(text); m != nil {
		if strings.EqualFold(m[1], "tomorrow") {
			base = base.AddDate(0, 0, 1)
		}
		return base.Format(directory.DateLayout)
	}
	if m := weekdayRe.FindStringSubmatch(text); m != nil {
		wd := weekdays[strings.ToLower(m[2])]
		ahead := (int(wd) - int(base.Weekday()) + 7) % 7
		if ahead == 0 && m[1] != "" {
			ahead = 7
		}
		return base.AddDate(0, 0, ahead).Format(directory.DateLayout)
	}
	return ""
}

func matchTime(text string) string {
	if m := meridiemRe.FindStringSubmatch(text); m != nil {
		raw := m[1]
		if m[2] != "" {
			raw += ":" + m[2]
		}
		raw += " " + strings.ToUpper(m[3]) + "M"
		if c, err := directory.ParseClock(raw); err == nil {
			return c.String()
		}
	}
	if m := clock24Re.FindString(text); m != "" {
		if c, err := directory.ParseClock(m); err == nil {
			return c.String()
		}
	}
	if strings.Contains(strings.ToLower(text), "noon") {
		return directory.Clock(12 * 60).String()
	}
	return ""
}

func trimName(raw string) string {
	var words []string
	for _, w := range strings.Fields(raw) {
		w = strings.Trim(w, ",.!?;:\"'")
		if w == "" || nameStopWords[strings.ToLower(w)] || len(words) == 3 {
			break
		}
		for _, r := range w {
			if !(r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r == '-' || r == '\'' || r > 127) {
				return strings.Join(words, " ")
			}
		}
		words = append(words, titleWord(w))
	}
	return strings.Join(words, " ")
}

func titleWord(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
