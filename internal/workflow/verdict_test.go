package workflow

import "testing"

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name         string
		response     string
		wantStatus   Status
		wantFeedback string
	}{
		{
			name:       "valid uppercase",
			response:   "VALID",
			wantStatus: StatusValid,
		},
		{
			name:       "valid lowercase",
			response:   "valid",
			wantStatus: StatusValid,
		},
		{
			name:       "valid mixed case with trailer",
			response:   "Valid - the answer covers everything",
			wantStatus: StatusValid,
		},
		{
			name:       "valid with surrounding whitespace",
			response:   "  \n VALID \n",
			wantStatus: StatusValid,
		},
		{
			name:         "invalid carries full response as feedback",
			response:     "INVALID: wrong function name",
			wantStatus:   StatusInvalid,
			wantFeedback: "INVALID: wrong function name",
		},
		{
			name:         "invalid lowercase",
			response:     "invalid: missing the error path",
			wantStatus:   StatusInvalid,
			wantFeedback: "invalid: missing the error path",
		},
		{
			name:         "partial carries full response as feedback",
			response:     "PARTIAL: does not cover the retry logic",
			wantStatus:   StatusPartial,
			wantFeedback: "PARTIAL: does not cover the retry logic",
		},
		{
			name:       "unparseable fails open to valid",
			response:   "The answer looks reasonable to me.",
			wantStatus: StatusValid,
		},
		{
			name:       "empty fails open to valid",
			response:   "",
			wantStatus: StatusValid,
		},
		{
			name:       "timeout diagnostic fails open to valid",
			response:   "Error: Timed out after 300s",
			wantStatus: StatusValid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, feedback := ParseVerdict(tt.response)
			if status != tt.wantStatus {
				t.Errorf("status = %q, want %q", status, tt.wantStatus)
			}
			if feedback != tt.wantFeedback {
				t.Errorf("feedback = %q, want %q", feedback, tt.wantFeedback)
			}
		})
	}
}
