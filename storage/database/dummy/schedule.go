package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/cronograma/core/schedule"
)

type scheduleRepository struct {
	db *scheduleTables
}

var _ schedule.Repository = (*scheduleRepository)(nil) // interface compliance check

func NewScheduleRepository(db *DB) schedule.Repository {
	return &scheduleRepository{db: db.schedule}
}

func (repo *scheduleRepository) QuerySubjects(_ context.Context, ownerID string) ([]schedule.Subject, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	subjects := make([]schedule.Subject, 0)
	for _, s := range repo.db.subjects {
		if s.OwnerID == ownerID {
			subjects = append(subjects, *s)
		}
	}
	sort.Slice(subjects, func(i, j int) bool {
		if subjects[i].OrderIndex != subjects[j].OrderIndex {
			return subjects[i].OrderIndex < subjects[j].OrderIndex
		}
		return subjects[i].Code < subjects[j].Code
	})
	return subjects, nil
}

func (repo *scheduleRepository) CountSubjects(_ context.Context, ownerID string) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	count := 0
	for _, s := range repo.db.subjects {
		if s.OwnerID == ownerID {
			count++
		}
	}
	return count, nil
}

func (repo *scheduleRepository) GetSubject(_ context.Context, ownerID, id string) (schedule.Subject, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.subjects[id]; ok && s.OwnerID == ownerID {
		return *s, nil
	}
	return schedule.Subject{}, schedule.ErrSubjectNotFound
}

func (repo *scheduleRepository) CheckSubjectCodeUniqueness(_ context.Context, ownerID, code, excludedID string) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, s := range repo.db.subjects {
		if s.OwnerID == ownerID && s.Code == code && s.ID != excludedID {
			return schedule.ErrSubjectCodeExists
		}
	}
	return nil
}

func (repo *scheduleRepository) CreateSubjects(_ context.Context, subjects ...schedule.Subject) ([]schedule.Subject, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	created := make([]schedule.Subject, 0, len(subjects))
	for _, sbj := range subjects {
		for _, s := range repo.db.subjects {
			if s.OwnerID == sbj.OwnerID && s.Code == sbj.Code {
				return nil, schedule.ErrSubjectCodeExists
			}
		}
		sbj.ID = uuid.New().String()
		s := sbj
		repo.db.subjects[s.ID] = &s
		created = append(created, s)
	}
	return created, nil
}

func (repo *scheduleRepository) UpdateSubject(_ context.Context, sbj schedule.Subject) (schedule.Subject, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if s, ok := repo.db.subjects[sbj.ID]; !ok || s.OwnerID != sbj.OwnerID {
		return schedule.Subject{}, schedule.ErrSubjectNotFound
	}
	for _, s := range repo.db.subjects {
		if s.ID != sbj.ID && s.OwnerID == sbj.OwnerID && s.Code == sbj.Code {
			return schedule.Subject{}, schedule.ErrSubjectCodeExists
		}
	}
	repo.db.subjects[sbj.ID] = &sbj
	return sbj, nil
}

func (repo *scheduleRepository) DeleteSubject(_ context.Context, ownerID, id string) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if s, ok := repo.db.subjects[id]; !ok || s.OwnerID != ownerID {
		return 0, nil
	}
	delete(repo.db.subjects, id)
	for evID, ev := range repo.db.events {
		if ev.SubjectID == id {
			delete(repo.db.events, evID)
		}
	}
	return 1, nil
}

func (repo *scheduleRepository) CreateEvent(_ context.Context, ev schedule.Event) (schedule.Event, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if s, ok := repo.db.subjects[ev.SubjectID]; !ok || s.OwnerID != ev.OwnerID {
		return schedule.Event{}, schedule.ErrSubjectNotFound
	}
	ev.ID = uuid.New().String()
	repo.db.events[ev.ID] = &ev
	return ev, nil
}

func (repo *scheduleRepository) GetEvent(_ context.Context, ownerID, id string) (schedule.Event, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if ev, ok := repo.db.events[id]; ok && ev.OwnerID == ownerID {
		return *ev, nil
	}
	return schedule.Event{}, schedule.ErrEventNotFound
}

func (repo *scheduleRepository) QueryEvents(_ context.Context, ownerID string, filter schedule.EventFilter) ([]schedule.Event, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	events := make([]schedule.Event, 0)
	for _, ev := range repo.db.events {
		if ev.OwnerID == ownerID && filter.Match(*ev) {
			events = append(events, *ev)
		}
	}
	sort.Slice(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if !a.End().Equal(b.End()) {
			return a.End().Before(b.End())
		}
		if a.Title != b.Title {
			return a.Title < b.Title
		}
		return a.ID < b.ID
	})
	return events, nil
}

func (repo *scheduleRepository) UpdateEvent(_ context.Context, ev schedule.Event) (schedule.Event, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if orig, ok := repo.db.events[ev.ID]; !ok || orig.OwnerID != ev.OwnerID {
		return schedule.Event{}, schedule.ErrEventNotFound
	}
	repo.db.events[ev.ID] = &ev
	return ev, nil
}

func (repo *scheduleRepository) DeleteEvent(_ context.Context, ownerID, id string) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if ev, ok := repo.db.events[id]; !ok || ev.OwnerID != ownerID {
		return 0, nil
	}
	delete(repo.db.events, id)
	return 1, nil
}
