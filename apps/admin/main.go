package main

import (
	"context"
	"log"
	"os"

	"github.com/trezcool/cronograma/core"
	"github.com/trezcool/cronograma/core/schedule"
	"github.com/trezcool/cronograma/storage/database"
	boiledrepos "github.com/trezcool/cronograma/storage/database/sqlboiler"
	sqlxrepos "github.com/trezcool/cronograma/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.NewConfig()

	// set up DB
	ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer cancel()
	errAndDie(database.CreateIfNotExist(ctx, conf))
	db, err := database.Open(conf)
	errAndDie(err)
	errAndDie(database.Ping(ctx, db))

	// start CLI
	cli := commandLine{
		db:       db,
		usrRepo:  boiledrepos.NewUserRepository(db),
		schedSvc: schedule.NewService(sqlxrepos.NewScheduleRepository(db), nil, conf),
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
