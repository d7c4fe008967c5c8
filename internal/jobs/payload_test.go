package jobs

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/devBarbar/smart-study-notes-sub002/internal/types"
)

func TestValidatePayload(t *testing.T) {
	lectureID := uuid.New().String()
	examID := uuid.New().String()
	questionID := uuid.New().String()

	cases := []struct {
		name    string
		jobType string
		payload string
		wantErr error
	}{
		{"plan ok", types.JobTypePlan, `{"lecture_id":"` + lectureID + `"}`, nil},
		{"plan missing lecture", types.JobTypePlan, `{}`, ErrInvalidPayload},
		{"plan unknown field", types.JobTypePlan, `{"lecture_id":"` + lectureID + `","surprise":1}`, ErrInvalidPayload},
		{"plan malformed json", types.JobTypePlan, `{"lecture_id":`, ErrInvalidPayload},
		{"empty payload", types.JobTypePlan, `   `, ErrInvalidPayload},
		{"unknown type", "mine_bitcoin", `{}`, ErrInvalidType},
		{"chat ok", types.JobTypeChat, `{"messages":[{"role":"user","content":"hi"}]}`, nil},
		{"chat no messages", types.JobTypeChat, `{"messages":[]}`, ErrInvalidPayload},
		{"chat blank role", types.JobTypeChat, `{"messages":[{"role":"","content":"hi"}]}`, ErrInvalidPayload},
		{"grade ok", types.JobTypeGrade, `{"practice_exam_id":"` + examID + `","answers":[{"question_id":"` + questionID + `","answer_text":"x"}]}`, nil},
		{"grade no answers", types.JobTypeGrade, `{"practice_exam_id":"` + examID + `","answers":[]}`, ErrInvalidPayload},
		{"grade nil question", types.JobTypeGrade, `{"practice_exam_id":"` + examID + `","answers":[{"answer_text":"x"}]}`, ErrInvalidPayload},
		{"transcribe ok", types.JobTypeTranscribe, `{"lecture_id":"` + lectureID + `","image_url":"https://example.com/p.png"}`, nil},
		{"transcribe no image", types.JobTypeTranscribe, `{"lecture_id":"` + lectureID + `","image_url":"  "}`, ErrInvalidPayload},
		{"metadata ok", types.JobTypeMetadata, `{"lecture_id":"` + lectureID + `"}`, nil},
		{"embed ok", types.JobTypeEmbed, `{"lecture_id":"` + lectureID + `"}`, nil},
		{"exam ok", types.JobTypePracticeExam, `{"lecture_id":"` + lectureID + `","question_count":5}`, nil},
		{"exam negative count", types.JobTypePracticeExam, `{"lecture_id":"` + lectureID + `","question_count":-1}`, ErrInvalidPayload},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePayload(tc.jobType, []byte(tc.payload))
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("expected valid, got %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}
