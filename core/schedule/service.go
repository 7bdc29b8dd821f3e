package schedule

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/cronograma/core"
	"github.com/trezcool/cronograma/core/week"
)

// mockable in tests
var nowFunc = time.Now

type (
	Repository interface {
		SubjectRepository
		EventRepository
	}

	Service interface {
		ListSubjects(ctx context.Context, ownerID string) ([]Subject, error)
		GetSubject(ctx context.Context, ownerID, id string) (Subject, error)
		// CheckSubjectCode returns a ValidationError on the code field when code is taken.
		CheckSubjectCode(ctx context.Context, ownerID, code, excludedID string) error
		CreateSubject(ctx context.Context, ownerID string, sd SubjectDraft) (Subject, error)
		UpdateSubject(ctx context.Context, sbj Subject, sd SubjectDraft) (Subject, error)
		DeleteSubject(ctx context.Context, ownerID, id string) error
		// SeedSubjects creates the default subjects when the owner has none, and reports whether it did.
		SeedSubjects(ctx context.Context, ownerID string) (bool, error)

		ListEvents(ctx context.Context, ownerID string, filter EventFilter) ([]Event, error)
		GetEvent(ctx context.Context, ownerID, id string) (Event, error)
		CreateEvent(ctx context.Context, ownerID string, ne NewEvent) (Event, error)
		UpdateEvent(ctx context.Context, ev Event, draft EventDraft) (Event, error)
		DeleteEvent(ctx context.Context, ownerID, id string) error

		// Week returns the week view of the week holding anchor, today's week when anchor is zero.
		Week(ctx context.Context, ownerID string, anchor week.Date) (WeekView, error)
		Today() week.Date
	}

	service struct {
		repo  Repository
		cache WeekCache
		conf  *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, cache WeekCache, conf *core.Config) Service {
	if cache == nil {
		cache = NopCache{}
	}
	return &service{
		repo:  repo,
		cache: cache,
		conf:  conf,
	}
}

func (svc *service) ListSubjects(ctx context.Context, ownerID string) ([]Subject, error) {
	return svc.repo.QuerySubjects(ctx, ownerID)
}

func (svc *service) GetSubject(ctx context.Context, ownerID, id string) (Subject, error) {
	return svc.repo.GetSubject(ctx, ownerID, id)
}

func (svc *service) CheckSubjectCode(ctx context.Context, ownerID, code, excludedID string) error {
	if err := svc.repo.CheckSubjectCodeUniqueness(ctx, ownerID, code, excludedID); err != nil {
		if errors.Cause(err) == ErrSubjectCodeExists {
			return core.NewValidationError(err, core.FieldError{Field: "code", Error: err.Error()})
		}
		return errors.Wrap(err, "checking subject code")
	}
	return nil
}

func (svc *service) CreateSubject(ctx context.Context, ownerID string, sd SubjectDraft) (Subject, error) {
	created, err := svc.repo.CreateSubjects(ctx, Subject{
		OwnerID:    ownerID,
		Code:       sd.Code,
		Name:       sd.Name,
		OrderIndex: sd.OrderIndex,
		CreatedAt:  nowFunc().UTC(),
	})
	if err != nil {
		return Subject{}, err
	}
	svc.cache.InvalidateOwner(ctx, ownerID)
	return created[0], nil
}

func (svc *service) UpdateSubject(ctx context.Context, sbj Subject, sd SubjectDraft) (Subject, error) {
	sbj.Code = sd.Code
	sbj.Name = sd.Name
	sbj.OrderIndex = sd.OrderIndex
	updated, err := svc.repo.UpdateSubject(ctx, sbj)
	if err != nil {
		return Subject{}, err
	}
	svc.cache.InvalidateOwner(ctx, sbj.OwnerID)
	return updated, nil
}

func (svc *service) DeleteSubject(ctx context.Context, ownerID, id string) error {
	n, err := svc.repo.DeleteSubject(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSubjectNotFound
	}
	svc.cache.InvalidateOwner(ctx, ownerID)
	return nil
}

func (svc *service) SeedSubjects(ctx context.Context, ownerID string) (bool, error) {
	count, err := svc.repo.CountSubjects(ctx, ownerID)
	if err != nil {
		return false, errors.Wrap(err, "counting subjects")
	}
	codes := svc.conf.Schedule.SeedSubjects
	if count > 0 || len(codes) == 0 {
		return false, nil
	}

	now := nowFunc().UTC()
	subjects := make([]Subject, 0, len(codes))
	for i, code := range codes {
		subjects = append(subjects, Subject{
			OwnerID:    ownerID,
			Code:       code,
			OrderIndex: i + 1,
			CreatedAt:  now,
		})
	}
	if _, err := svc.repo.CreateSubjects(ctx, subjects...); err != nil {
		return false, errors.Wrap(err, "creating subjects")
	}
	svc.cache.InvalidateOwner(ctx, ownerID)
	return true, nil
}

func (svc *service) ListEvents(ctx context.Context, ownerID string, filter EventFilter) ([]Event, error) {
	return svc.repo.QueryEvents(ctx, ownerID, filter)
}

func (svc *service) GetEvent(ctx context.Context, ownerID, id string) (Event, error) {
	return svc.repo.GetEvent(ctx, ownerID, id)
}

func (svc *service) CreateEvent(ctx context.Context, ownerID string, ne NewEvent) (Event, error) {
	now := nowFunc().UTC()
	ev := Event{OwnerID: ownerID, SubjectID: ne.SubjectID, CreatedAt: now, UpdatedAt: now}
	applyDraft(&ev, ne.EventDraft)

	created, err := svc.repo.CreateEvent(ctx, ev)
	if err != nil {
		return Event{}, err
	}
	svc.cache.InvalidateOwner(ctx, ownerID)
	return created, nil
}

func (svc *service) UpdateEvent(ctx context.Context, ev Event, draft EventDraft) (Event, error) {
	applyDraft(&ev, draft)
	ev.UpdatedAt = nowFunc().UTC()

	updated, err := svc.repo.UpdateEvent(ctx, ev)
	if err != nil {
		return Event{}, err
	}
	svc.cache.InvalidateOwner(ctx, ev.OwnerID)
	return updated, nil
}

func applyDraft(ev *Event, d EventDraft) {
	ev.Title = d.Title
	ev.Type = d.Type
	ev.Date = d.Date
	ev.EndDate = d.EndDate
	if ev.EndDate.IsZero() {
		ev.EndDate = d.Date
	}
	ev.WeightPercent = d.WeightPercent
}

func (svc *service) DeleteEvent(ctx context.Context, ownerID, id string) error {
	n, err := svc.repo.DeleteEvent(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrEventNotFound
	}
	svc.cache.InvalidateOwner(ctx, ownerID)
	return nil
}

func (svc *service) Today() week.Date {
	return week.Today(nowFunc(), svc.conf.Location())
}

func (svc *service) Week(ctx context.Context, ownerID string, anchor week.Date) (WeekView, error) {
	today := svc.Today()
	if anchor.IsZero() {
		anchor = today
	}
	monday := week.StartOfWeek(anchor)
	gen := svc.cache.Generation(ctx, ownerID)
	if view, ok := svc.cache.GetWeek(ctx, ownerID, gen, monday, today); ok {
		return view, nil
	}

	subjects, err := svc.repo.QuerySubjects(ctx, ownerID)
	if err != nil {
		return WeekView{}, errors.Wrap(err, "querying subjects")
	}
	events, err := svc.repo.QueryEvents(ctx, ownerID, EventFilter{From: monday, To: monday.AddDays(week.Days)})
	if err != nil {
		return WeekView{}, errors.Wrap(err, "querying events")
	}

	view := BuildWeek(monday, today, subjects, events)
	svc.cache.SetWeek(ctx, ownerID, gen, view)
	return view, nil
}
