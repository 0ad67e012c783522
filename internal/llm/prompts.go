package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/hackgods/appointment-assistant/internal/assistant"
	"github.com/hackgods/appointment-assistant/internal/directory"
)

const extractInstruction = `You read one message from a patient talking to a clinic's appointment assistant.
Return only the booking details the patient states in this message, as JSON.
Leave a field empty when the message does not state it. Never guess.
Dates must be YYYY-MM-DD; resolve weekdays and words like "tomorrow" against today's date.
Times must look like "11:00 AM".
intent is "book" when the patient gives or asks about booking details,
"list_doctors" when they ask which doctors or hours exist,
"reset" when they want to start over, and "other" otherwise.`

const phraseInstruction = `You are a friendly appointment assistant for a small clinic.
Rewrite the draft reply for the patient in a warm, concise tone.
Keep every name, date, time and availability window from the draft exactly as written.
Do not add facts, do not promise anything the draft does not say, and ask only what the draft asks.
Reply with the message text only.`

var extractionSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"intent": {
			Type: genai.TypeString,
			Enum: []string{
				string(assistant.IntentBook),
				string(assistant.IntentListDoctors),
				string(assistant.IntentReset),
				string(assistant.IntentOther),
			},
		},
		"patient_name": {Type: genai.TypeString},
		"email":        {Type: genai.TypeString},
		"doctor_name":  {Type: genai.TypeString},
		"date":         {Type: genai.TypeString, Description: "YYYY-MM-DD"},
		"time":         {Type: genai.TypeString, Description: "h:mm AM/PM"},
	},
	Required: []string{"intent"},
}

func extractPrompt(req assistant.ExtractRequest) string {
	var b strings.Builder
	if !req.Today.IsZero() {
		fmt.Fprintf(&b, "Today is %s (%s).\n", req.Today.Format(directory.DateLayout), req.Today.Weekday())
	}
	fmt.Fprintf(&b, "Doctors: %s.\n", strings.Join(req.Doctors, ", "))
	if known, err := json.Marshal(req.Known); err == nil && !req.Known.IsEmpty() {
		fmt.Fprintf(&b, "Already known: %s\n", known)
	}
	if req.Awaiting != "" {
		fmt.Fprintf(&b, "The assistant just asked for: %s\n", req.Awaiting)
	}
	fmt.Fprintf(&b, "Patient message: %s", req.Text)
	return b.String()
}

func phrasePrompt(req assistant.PhraseRequest) string {
	return fmt.Sprintf("Patient said: %s\nReply type: %s\nDraft reply:\n%s", req.UserText, req.Kind, req.Draft)
}

type extractionJSON struct {
	Intent      string `json:"intent"`
	PatientName string `json:"patient_name"`
	Email       string `json:"email"`
	DoctorName  string `json:"doctor_name"`
	Date        string `json:"date"`
	Time        string `json:"time"`
}

// decodeExtraction parses the model's JSON. Dates and times it can read are
// rewritten to canonical form; anything else is kept so validation can
// reject it with a useful message.
func decodeExtraction(raw string) (assistant.Extraction, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var in extractionJSON
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &in); err != nil {
		return assistant.Extraction{}, fmt.Errorf("decode extraction: %w", err)
	}

	f := assistant.Fields{
		PatientName: clean(in.PatientName),
		Email:       clean(in.Email),
		Doctor:      clean(in.DoctorName),
		Date:        clean(in.Date),
		Time:        clean(in.Time),
	}
	if f.Date != "" {
		if d, err := directory.ParseDate(f.Date); err == nil {
			f.Date = d.Format(directory.DateLayout)
		}
	}
	if f.Time != "" {
		if c, err := directory.ParseClock(f.Time); err == nil {
			f.Time = c.String()
		}
	}

	return assistant.Extraction{Intent: assistant.ParseIntent(strings.ToLower(clean(in.Intent))), Fields: f}, nil
}

func clean(s string) string {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "null", "none", "unknown", "n/a":
		return ""
	}
	return s
}
