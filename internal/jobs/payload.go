// Package jobs contains the durable queue worker, the handler registry,
// and the per-type pipeline handlers.
package jobs

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/devBarbar/smart-study-notes-sub002/internal/llm"
	"github.com/devBarbar/smart-study-notes-sub002/internal/types"
)

var (
	// ErrInvalidType rejects enqueue of a job type with no handler.
	ErrInvalidType = errors.New("unknown job type")
	// ErrInvalidPayload rejects enqueue of a payload that does not decode
	// against the schema for its job type.
	ErrInvalidPayload = errors.New("invalid job payload")
)

// One payload struct per job type. The type column on the job row is
// the tag; the payload JSON must decode cleanly against the matching
// struct at enqueue time, so handlers never see a malformed input.

type PlanPayload struct {
	LectureID uuid.UUID `json:"lecture_id"`
}

type ChatPayload struct {
	LectureID *uuid.UUID    `json:"lecture_id,omitempty"`
	Messages  []llm.Message `json:"messages"`
}

type GradeAnswer struct {
	QuestionID uuid.UUID `json:"question_id"`
	AnswerText string    `json:"answer_text"`
}

type GradePayload struct {
	PracticeExamID uuid.UUID     `json:"practice_exam_id"`
	Answers        []GradeAnswer `json:"answers"`
}

type TranscribePayload struct {
	LectureID uuid.UUID `json:"lecture_id"`
	ImageURL  string    `json:"image_url"`
	Detail    string    `json:"detail,omitempty"`
}

type MetadataPayload struct {
	LectureID uuid.UUID `json:"lecture_id"`
}

type EmbedPayload struct {
	LectureID uuid.UUID `json:"lecture_id"`
}

type PracticeExamPayload struct {
	LectureID     uuid.UUID `json:"lecture_id"`
	QuestionCount int       `json:"question_count,omitempty"`
	Title         string    `json:"title,omitempty"`
}

func decodeStrict(raw []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

// ValidatePayload checks a (type, payload) pair before any job row is
// written. It returns ErrInvalidType for types outside the allow-list
// and ErrInvalidPayload when required fields are missing or the JSON
// does not match the type's schema.
func ValidatePayload(jobType string, raw []byte) error {
	if !types.AllowedJobTypes[jobType] {
		return fmt.Errorf("%w: %q", ErrInvalidType, jobType)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return fmt.Errorf("%w: empty payload", ErrInvalidPayload)
	}

	switch jobType {
	case types.JobTypePlan:
		var p PlanPayload
		if err := decodeStrict(raw, &p); err != nil {
			return err
		}
		if p.LectureID == uuid.Nil {
			return fmt.Errorf("%w: lecture_id is required", ErrInvalidPayload)
		}
	case types.JobTypeChat:
		var p ChatPayload
		if err := decodeStrict(raw, &p); err != nil {
			return err
		}
		if len(p.Messages) == 0 {
			return fmt.Errorf("%w: messages is required", ErrInvalidPayload)
		}
		for _, m := range p.Messages {
			if strings.TrimSpace(m.Role) == "" || strings.TrimSpace(m.Content) == "" {
				return fmt.Errorf("%w: every message needs role and content", ErrInvalidPayload)
			}
		}
	case types.JobTypeGrade:
		var p GradePayload
		if err := decodeStrict(raw, &p); err != nil {
			return err
		}
		if p.PracticeExamID == uuid.Nil {
			return fmt.Errorf("%w: practice_exam_id is required", ErrInvalidPayload)
		}
		if len(p.Answers) == 0 {
			return fmt.Errorf("%w: answers is required", ErrInvalidPayload)
		}
		for _, a := range p.Answers {
			if a.QuestionID == uuid.Nil {
				return fmt.Errorf("%w: every answer needs question_id", ErrInvalidPayload)
			}
		}
	case types.JobTypeTranscribe:
		var p TranscribePayload
		if err := decodeStrict(raw, &p); err != nil {
			return err
		}
		if p.LectureID == uuid.Nil {
			return fmt.Errorf("%w: lecture_id is required", ErrInvalidPayload)
		}
		if strings.TrimSpace(p.ImageURL) == "" {
			return fmt.Errorf("%w: image_url is required", ErrInvalidPayload)
		}
	case types.JobTypeMetadata:
		var p MetadataPayload
		if err := decodeStrict(raw, &p); err != nil {
			return err
		}
		if p.LectureID == uuid.Nil {
			return fmt.Errorf("%w: lecture_id is required", ErrInvalidPayload)
		}
	case types.JobTypeEmbed:
		var p EmbedPayload
		if err := decodeStrict(raw, &p); err != nil {
			return err
		}
		if p.LectureID == uuid.Nil {
			return fmt.Errorf("%w: lecture_id is required", ErrInvalidPayload)
		}
	case types.JobTypePracticeExam:
		var p PracticeExamPayload
		if err := decodeStrict(raw, &p); err != nil {
			return err
		}
		if p.LectureID == uuid.Nil {
			return fmt.Errorf("%w: lecture_id is required", ErrInvalidPayload)
		}
		if p.QuestionCount < 0 {
			return fmt.Errorf("%w: question_count must not be negative", ErrInvalidPayload)
		}
	}
	return nil
}
