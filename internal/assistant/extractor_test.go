package assistant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeywordExtractor(t *testing.T) {
	doctors := []string{"Dr. Khan", "Dr. Ahmed"}

	tests := []struct {
		name     string
		text     string
		awaiting string
		intent   Intent
		want     Fields
	}{
		{
			name:   "full request",
			text:   "My name is Ali. I'd like to book Dr. Khan on Wednesday at 11:00 AM",
			intent: IntentBook,
			want:   Fields{PatientName: "Ali", Doctor: "Dr. Khan", Date: "2026-10-21", Time: "11:00 AM"},
		},
		{
			name:   "iso date and 24h clock",
			text:   "dr ahmed 2026-10-24 19:30",
			intent: IntentBook,
			want:   Fields{Doctor: "Dr. Ahmed", Date: "2026-10-24", Time: "7:30 PM"},
		},
		{
			name:   "spelled out date",
			text:   "Can I see Khan on October 23, 2026 at 1pm?",
			intent: IntentBook,
			want:   Fields{Doctor: "Dr. Khan", Date: "2026-10-23", Time: "1:00 PM"},
		},
		{
			name:   "tomorrow and email",
			text:   "tomorrow at 10 a.m. please, mail me at sara.k@example.org",
			intent: IntentBook,
			want:   Fields{Email: "sara.k@example.org", Date: "2026-10-16", Time: "10:00 AM"},
		},
		{
			name:   "same weekday means today unless next",
			text:   "next thursday",
			intent: IntentBook,
			want:   Fields{Date: "2026-10-22"},
		},
		{
			name:     "bare name answer",
			text:     "Sara Khanum",
			awaiting: FieldPatientName,
			intent:   IntentBook,
			want:     Fields{PatientName: "Sara Khanum"},
		},
		{
			name:     "surname shared with a doctor",
			text:     "Ali Khan",
			awaiting: FieldPatientName,
			intent:   IntentBook,
			want:     Fields{PatientName: "Ali Khan"},
		},
		{
			name:     "introduced name shared with a doctor",
			text:     "My name is Ahmed Raza",
			awaiting: FieldPatientName,
			intent:   IntentBook,
			want:     Fields{PatientName: "Ahmed Raza"},
		},
		{
			name:     "titled doctor while asking for the name",
			text:     "I'm Sara, doctor khan please",
			awaiting: FieldPatientName,
			intent:   IntentBook,
			want:     Fields{PatientName: "Sara", Doctor: "Dr. Khan"},
		},
		{
			name:   "bare doctor surname outside the patient name",
			text:   "My name is Ali Khan, I want to see Ahmed",
			intent: IntentBook,
			want:   Fields{PatientName: "Ali Khan", Doctor: "Dr. Ahmed"},
		},
		{
			name:     "greeting is not a name",
			text:     "hi",
			awaiting: FieldPatientName,
			intent:   IntentOther,
		},
		{
			name:   "unknown doctor kept for rejection",
			text:   "I want Dr. Smith",
			intent: IntentBook,
			want:   Fields{Doctor: "Dr. Smith"},
		},
		{
			name:   "list doctors",
			text:   "which doctors do you have?",
			intent: IntentListDoctors,
		},
		{
			name:   "reset",
			text:   "never mind, start over",
			intent: IntentReset,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex, err := KeywordExtractor{}.Extract(context.Background(), ExtractRequest{
				Text:     tt.text,
				Awaiting: tt.awaiting,
				Doctors:  doctors,
				Today:    fixedNow,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.intent, ex.Intent)
			assert.Equal(t, tt.want, ex.Fields)
		})
	}
}

func TestParseIntent(t *testing.T) {
	assert.Equal(t, IntentBook, ParseIntent("book"))
	assert.Equal(t, IntentListDoctors, ParseIntent("list_doctors"))
	assert.Equal(t, IntentOther, ParseIntent("BOOK"))
	assert.Equal(t, IntentOther, ParseIntent(""))
}

func TestFieldsMissingAndMerge(t *testing.T) {
	f := Fields{PatientName: "Ali"}
	assert.Equal(t, []string{FieldDoctor, FieldDate, FieldTime}, f.Missing(false))
	assert.Equal(t, []string{FieldDoctor, FieldDate, FieldTime, FieldEmail}, f.Missing(true))

	f.Merge(Fields{Doctor: "Dr. Khan", PatientName: ""})
	assert.Equal(t, Fields{PatientName: "Ali", Doctor: "Dr. Khan"}, f)
}
