package main

import (
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/jukwaa/core"
	"github.com/trezcool/jukwaa/core/forum"
	"github.com/trezcool/jukwaa/core/user"
	logsvc "github.com/trezcool/jukwaa/services/logger"
	"github.com/trezcool/jukwaa/storage/database"
	boiledrepos "github.com/trezcool/jukwaa/storage/database/sqlboiler"
	sqlxrepos "github.com/trezcool/jukwaa/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(logsvc.NewZapLogger(conf), conf).Named("ADMIN")
	logger.Enable(!conf.Debug)

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}

	translator := core.NewTranslator()
	validate := core.NewValidator(translator)
	user.InitValidators(validate, translator)

	forumSvc := forum.NewService(forum.Deps{
		Repo:     boiledrepos.NewForumRepository(db),
		Auditor:  sqlxrepos.NewAuditor(sqlx.NewDb(db, conf.Database.Engine)),
		Logger:   logger,
		Validate: validate,
		Conf:     conf,
	})

	// start CLI
	cli := commandLine{
		db:       db,
		usrSvc:   user.NewService(boiledrepos.NewUserRepository(db), forumSvc, conf),
		forumSvc: forumSvc,
		validate: validate,
		out:      os.Stdout,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	_ = logger.Sync()
	if err != nil {
		if err != errHelp {
			fmt.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
