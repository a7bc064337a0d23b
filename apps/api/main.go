package main

import (
	"context"
	"database/sql"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof on the default mux

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	echoapi "github.com/trezcool/jukwaa/apps/api/echo"
	"github.com/trezcool/jukwaa/core"
	"github.com/trezcool/jukwaa/core/blog"
	"github.com/trezcool/jukwaa/core/dashboard"
	"github.com/trezcool/jukwaa/core/forum"
	"github.com/trezcool/jukwaa/core/user"
	appfs "github.com/trezcool/jukwaa/fs"
	emailsvc "github.com/trezcool/jukwaa/services/email"
	logsvc "github.com/trezcool/jukwaa/services/logger"
	"github.com/trezcool/jukwaa/services/metrics"
	"github.com/trezcool/jukwaa/storage/database"
	boiledrepos "github.com/trezcool/jukwaa/storage/database/sqlboiler"
	sqlxrepos "github.com/trezcool/jukwaa/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	zl := logsvc.NewZapLogger(conf)
	rootLogger := logsvc.NewRollbarLogger(zl, conf)
	rootLogger.Enable(!conf.Debug)
	//goland:noinspection GoUnhandledErrorResult
	defer rootLogger.Sync()

	logger := rootLogger.Named("API")
	dbLogger := rootLogger.Named("DB")

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		dbLogger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Error("Failed to close", err)
		}
	}()
	xdb := sqlx.NewDb(db, conf.Database.Engine)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	translator := core.NewTranslator()
	validate := core.NewValidator(translator)
	user.InitValidators(validate, translator)

	if err = core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf); err != nil {
		logger.Fatal(fmt.Sprintf("parsing email templates: %v", err), err)
	}
	if err = loadCommonPasswords(); err != nil {
		logger.Error(fmt.Sprintf("loading common passwords: %v", err), err)
	}

	recorder, err := metrics.NewRecorder(prometheus.DefaultRegisterer)
	if err != nil {
		logger.Fatal(fmt.Sprintf("registering metrics: %v", err), err)
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	forumSvc := forum.NewService(forum.Deps{
		Repo:     boiledrepos.NewForumRepository(db),
		Auditor:  sqlxrepos.NewAuditor(xdb),
		Mailer:   mailSvc,
		Logger:   logger,
		Recorder: recorder,
		Validate: validate,
		Conf:     conf,
	})
	usrSvc := user.NewService(boiledrepos.NewUserRepository(db), forumSvc, conf)
	blogSvc := blog.NewService(boiledrepos.NewBlogRepository(db), validate, conf)
	dashboardSvc := dashboard.NewService(sqlxrepos.NewStatsRepository(xdb), conf)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.
	// /metrics - Prometheus metrics.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	http.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:         conf,
			Logger:       logger,
			Validate:     validate,
			Translator:   translator,
			UserSvc:      usrSvc,
			Membership:   usrSvc,
			ForumSvc:     forumSvc,
			BlogSvc:      blogSvc,
			DashboardSvc: dashboardSvc,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sql.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func loadCommonPasswords() error {
	f, err := appfs.FS.Open(appfs.CommonPasswords)
	if err != nil {
		return err
	}
	//goland:noinspection GoUnhandledErrorResult
	defer f.Close()
	return user.LoadCommonPasswords(f)
}
