// Package testutil holds helpers shared by the package tests.
package testutil

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trezcool/cronograma/core"
	"github.com/trezcool/cronograma/core/schedule"
	"github.com/trezcool/cronograma/core/user"
	logsvc "github.com/trezcool/cronograma/services/logger"
)

// NewConfig returns the configuration of the TEST environment, rooted at the project directory.
func NewConfig() *core.Config {
	conf := core.NewConfig()
	conf.Env = "TEST"
	conf.TestMode = true
	conf.Debug = false
	conf.WorkDir = core.Getwd()
	conf.Server.DisableRequestLogs = true
	conf.Redis.Enabled = false
	conf.Schedule.Timezone = "UTC"
	return conf
}

// NewLogger returns a logger printing nowhere, with Rollbar disabled.
func NewLogger(conf *core.Config) *logsvc.RollbarLogger {
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	logger.Enable(false)
	return logger
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	isActive, isAdmin bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		IsActive:  isActive,
		IsAdmin:   isAdmin,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		require.NoError(t, usr.SetPassword(pwd), "createUser()")
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	require.NoError(t, err, "createUser()")
	return usr
}

func CreateSubject(t *testing.T, repo schedule.Repository, ownerID, code string, orderIndex int) schedule.Subject {
	t.Helper()
	created, err := repo.CreateSubjects(context.Background(), schedule.Subject{
		OwnerID:    ownerID,
		Code:       code,
		OrderIndex: orderIndex,
		CreatedAt:  time.Now().UTC(),
	})
	require.NoError(t, err, "createSubject()")
	return created[0]
}

func CreateEvent(t *testing.T, repo schedule.Repository, ev schedule.Event) schedule.Event {
	t.Helper()
	if ev.EndDate.IsZero() {
		ev.EndDate = ev.Date
	}
	now := time.Now().UTC()
	ev.CreatedAt, ev.UpdatedAt = now, now
	created, err := repo.CreateEvent(context.Background(), ev)
	require.NoError(t, err, "createEvent()")
	return created
}
