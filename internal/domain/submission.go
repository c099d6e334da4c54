package domain

import (
	"strings"
	"time"
)

// SubmissionType distinguishes graded exams from plain surveys.
type SubmissionType string

const (
	SurveySubmission SubmissionType = "survey"
	ExamSubmission   SubmissionType = "exam"
)

// Status is the submission lifecycle status carried on the wire.
type Status string

const (
	StatusComplete        Status = "complete"
	StatusRequiresGrading Status = "requires grading"
	StatusPending         Status = "pending"
)

// Respondent carries the demographic metadata submitted alongside answers.
type Respondent struct {
	ID            string `json:"id"`
	Name          string `json:"name,omitempty"`
	FirstName     string `json:"firstName,omitempty"`
	LastName      string `json:"lastName,omitempty"`
	Gender        string `json:"gender,omitempty"`
	AgeGroup      string `json:"ageGroup,omitempty"`
	BirthDate     string `json:"birthDate,omitempty"`
	Email         string `json:"email,omitempty"`
	Phone         string `json:"phone,omitempty"`
	LanguageLevel string `json:"languageLevel,omitempty"`
}

// ProfileComplete reports whether every field the profile wizard steps would
// capture is already known. Contact counts as known with either channel.
func (r Respondent) ProfileComplete() bool {
	known := func(s string) bool { return strings.TrimSpace(s) != "" }
	return known(r.Gender) && known(r.AgeGroup) &&
		known(r.FirstName) && known(r.LastName) &&
		known(r.BirthDate) &&
		(known(r.Email) || known(r.Phone)) &&
		known(r.LanguageLevel)
}

// Team is the optional team/course context a submission belongs to.
type Team struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// SubmissionAnswer is one wire-shaped answer entry. Value holds the
// type-dependent payload: a string, an option object, an option list, or
// null. The grading fields stay zero for surveys.
type SubmissionAnswer struct {
	Value    any  `json:"value"`
	Mistakes int  `json:"mistakes"`
	Passed   bool `json:"passed"`
	Grade    int  `json:"grade"`
}

// ParentSnapshot freezes the questionnaire exactly as the respondent saw it
// while answering. It is the basis for later conflict detection and must
// never be mutated after the submission is built.
type ParentSnapshot struct {
	ID          string     `json:"_id"`
	Rev         string     `json:"_rev"`
	Name        string     `json:"name"`
	Questions   []Question `json:"questions"`
	Description string     `json:"description,omitempty"`
}

// Submission is the wire document delivered to the remote store. ID and Rev
// stay empty until assigned by delivery.
type Submission struct {
	ID             string             `json:"_id,omitempty"`
	Rev            string             `json:"_rev,omitempty"`
	Type           SubmissionType     `json:"type"`
	ParentID       string             `json:"parentId"`
	Parent         ParentSnapshot     `json:"parent"`
	User           Respondent         `json:"user"`
	Team           *Team              `json:"team,omitempty"`
	Answers        []SubmissionAnswer `json:"answers"`
	Grade          int                `json:"grade"`
	Status         Status             `json:"status"`
	StartTime      int64              `json:"startTime"`
	LastUpdateTime int64              `json:"lastUpdateTime"`
	Source         string             `json:"source,omitempty"`
	ParentCode     string             `json:"parentCode,omitempty"`
	DeviceName     string             `json:"deviceName,omitempty"`
	DevicePlatform string             `json:"devicePlatform,omitempty"`
}

// OutboxEntry wraps a queued submission with local queue metadata. The
// survey and team fields are denormalized so listings never deserialize the
// full payload.
type OutboxEntry struct {
	LocalID    int64      `json:"localId"`
	SurveyID   string     `json:"surveyId"`
	SurveyName string     `json:"surveyName"`
	TeamID     string     `json:"teamId,omitempty"`
	TeamName   string     `json:"teamName,omitempty"`
	EnqueuedAt time.Time  `json:"enqueuedAt"`
	Submission Submission `json:"submission"`
}
