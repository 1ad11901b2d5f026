package main

import (
	"log"
	"os"

	"github.com/jpcaldeira/escolar/core"
	"github.com/jpcaldeira/escolar/core/invoice"
	emailsvc "github.com/jpcaldeira/escolar/services/email"
	logsvc "github.com/jpcaldeira/escolar/services/logger"
	"github.com/jpcaldeira/escolar/storage/database"
	sqlxrepos "github.com/jpcaldeira/escolar/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	// set up DB
	errAndDie(database.CreateIfNotExist(core.Conf))
	db, err := database.Open(core.Conf)
	errAndDie(err)
	defer db.Close()
	errAndDie(db.Ping())

	rollbarLogger := logsvc.NewRollbarLogger(logger, core.Conf)
	rollbarLogger.Enable(!core.Conf.Debug)

	stdRepo := sqlxrepos.NewStudentRepository(db)
	invSvc := invoice.NewService(
		db,
		sqlxrepos.NewInvoiceRepository(db),
		stdRepo,
		emailsvc.NewConsoleService(),
		rollbarLogger,
	)

	// start CLI
	cli := commandLine{
		db:      db,
		usrRepo: sqlxrepos.NewUserRepository(db),
		invSvc:  invSvc,
	}
	if err := cli.run(os.Args); err != nil {
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
