// Package dig_container wires the API dependencies with go.uber.org/dig.
package dig_container

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/cronograma/apps/api/echo"
	"github.com/trezcool/cronograma/core"
	"github.com/trezcool/cronograma/core/schedule"
	"github.com/trezcool/cronograma/core/user"
	cachesvc "github.com/trezcool/cronograma/services/cache"
	emailsvc "github.com/trezcool/cronograma/services/email"
	logsvc "github.com/trezcool/cronograma/services/logger"
	metricsvc "github.com/trezcool/cronograma/services/metrics"
	"github.com/trezcool/cronograma/storage/database"
	boiledrepos "github.com/trezcool/cronograma/storage/database/sqlboiler"
	sqlxrepos "github.com/trezcool/cronograma/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

type serverParams struct {
	dig.In

	Conf        *core.Config
	Logger      core.Logger
	Validate    *validator.Validate
	Translator  ut.Translator
	UserSvc     user.Service
	ScheduleSvc schedule.Service
	Metrics     *metricsvc.Metrics
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

// newDB creates the database if needed, connects and migrates it.
func newDB(conf *core.Config, loggerParam DBLoggerParam) (*sql.DB, core.DB) {
	setUp := func() (*sql.DB, error) {
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout*6)
		defer cancel()

		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}
		if err = database.Ping(ctx, db); err != nil {
			return nil, err
		}

		if err = database.Migrate(db); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db, db
}

func newEmailService(conf *core.Config, tmpls *core.EmailTemplates, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, tmpls, logger)
	}
	return emailsvc.NewSendgridService(conf, tmpls, logger)
}

func newValidate(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	schedule.InitValidators(validate, translator)
	return validate
}

func newUserRepository(db *sql.DB) user.Repository {
	return boiledrepos.NewUserRepository(db)
}

func newWeekCache(cache *cachesvc.RedisCache) schedule.WeekCache {
	return cache
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(&echoapi.Deps{
		Conf:        p.Conf,
		Logger:      p.Logger,
		Validate:    p.Validate,
		Translator:  p.Translator,
		UserSvc:     p.UserSvc,
		ScheduleSvc: p.ScheduleSvc,
		Metrics:     p.Metrics,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(core.ParseEmailTemplates))
	must(c.Provide(newEmailService))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidate))
	must(c.Provide(newUserRepository))
	must(c.Provide(sqlxrepos.NewScheduleRepository))
	must(c.Provide(cachesvc.NewRedisCache))
	must(c.Provide(newWeekCache))
	must(c.Provide(metricsvc.New))
	must(c.Provide(user.NewService))
	must(c.Provide(schedule.NewService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
