package schedule

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/cronograma/core"
)

var (
	ErrSubjectNotFound   = errors.New("subject not found")
	ErrSubjectCodeExists = errors.New("a subject with this code already exists")
)

// Subject is a row of the week grid.
type Subject struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"-"`
	Code       string    `json:"code"`
	Name       string    `json:"name"`
	OrderIndex int       `json:"order_index"`
	CreatedAt  time.Time `json:"created_at"`
}

// DisplayName returns the subject name, or its code when it has none.
func (s Subject) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Code
}

// SubjectDraft contains the information needed to create or replace a Subject.
type SubjectDraft struct {
	Code       string `json:"code" validate:"required,max=12,alphanum_"`
	Name       string `json:"name" validate:"max=120"`
	OrderIndex int    `json:"order_index" validate:"min=0"`
}

func (sd *SubjectDraft) Validate(ctx context.Context, validate *validator.Validate, svc Service, ownerID string, orig ...Subject) error {
	sd.Code = strings.ToUpper(core.CleanString(sd.Code))
	sd.Name = core.CleanString(sd.Name)

	if err := validate.Struct(sd); err != nil {
		return err
	}
	var excludedID string
	if len(orig) > 0 {
		excludedID = orig[0].ID
	}
	return svc.CheckSubjectCode(ctx, ownerID, sd.Code, excludedID)
}

type SubjectRepository interface {
	// QuerySubjects returns the owner's subjects ordered by order_index, then code.
	QuerySubjects(ctx context.Context, ownerID string) ([]Subject, error)
	CountSubjects(ctx context.Context, ownerID string) (int, error)
	GetSubject(ctx context.Context, ownerID, id string) (Subject, error)
	// CheckSubjectCodeUniqueness returns ErrSubjectCodeExists when another subject of the owner,
	// other than excludedID, already uses code.
	CheckSubjectCodeUniqueness(ctx context.Context, ownerID, code, excludedID string) error
	CreateSubjects(ctx context.Context, subjects ...Subject) ([]Subject, error)
	UpdateSubject(ctx context.Context, sbj Subject) (Subject, error)
	// DeleteSubject deletes the subject and its events.
	DeleteSubject(ctx context.Context, ownerID, id string) (int, error)
}
