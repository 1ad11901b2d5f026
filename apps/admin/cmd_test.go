package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"strconv"
	"testing"
	"time"

	"github.com/jpcaldeira/escolar/core/invoice"
	"github.com/jpcaldeira/escolar/core/student"
	"github.com/jpcaldeira/escolar/core/user"
	emailsvc "github.com/jpcaldeira/escolar/services/email"
	dummydb "github.com/jpcaldeira/escolar/storage/database/dummy"
	testutil "github.com/jpcaldeira/escolar/tests"
)

var (
	usrRepo user.Repository
	stdRepo student.Repository
	invRepo invoice.Repository
)

func setup(t *testing.T) *commandLine {
	t.Helper()

	logger = log.New(io.Discard, "", 0)

	// set up DB & repos
	db := testutil.OpenDB()
	usrRepo = dummydb.NewUserRepository(db)
	stdRepo = dummydb.NewStudentRepository(db)
	invRepo = dummydb.NewInvoiceRepository(db)

	invSvc := invoice.NewService(nil, invRepo, stdRepo, emailsvc.NewConsoleServiceMock(), new(testutil.Logger))

	// start CLI
	return &commandLine{
		usrRepo: usrRepo,
		invSvc:  invSvc,
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantAnyErr bool
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	migrateRunFunc = func(command string, db *sql.DB, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "attendance", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			}
		})
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "User", "anasouza", "ana@test.br", "mdr", nil, true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, extra: extra{pwd: "lol"}},
		{name: "reset with email", args: []string{"resetpassword", "-username", usr.Email}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				refreshedUsr, err := usrRepo.GetUserByID(context.Background(), usr.ID)
				if err != nil {
					t.Fatalf("GetUserByID() failed, %v", err)
				}
				if bytes.Equal(refreshedUsr.PasswordHash, usr.PasswordHash) {
					t.Error("failed to update new password")
				}
			} else if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)

	existing := testutil.CreateUser(t, usrRepo, "User", "anasouza", "ana@test.br", "mdr", nil, false)

	readPasswordFunc = func(fd int) ([]byte, error) { return []byte("s3cr3t"), nil }

	t.Run("missing username and email", func(t *testing.T) {
		if err := cli.run([]string{"admin", "adduser"}); err != errHelp {
			t.Errorf("cli.run() error = %v, wantErr %v", err, errHelp)
		}
	})

	t.Run("creates an admin", func(t *testing.T) {
		if err := cli.run([]string{"admin", "adduser", "-username", "diretora", "-admin"}); err != nil {
			t.Fatalf("cli.run() unexpected error = %v", err)
		}
		usr, err := usrRepo.GetUserByUsernameOrEmail(context.Background(), "diretora")
		if err != nil {
			t.Fatalf("GetUserByUsernameOrEmail() failed, %v", err)
		}
		if !usr.IsAdmin() {
			t.Errorf("Roles = %v; want all roles", usr.Roles)
		}
		if !usr.IsActive {
			t.Error("user is not active")
		}
		if err := usr.CheckPassword("s3cr3t"); err != nil {
			t.Error("password was not set")
		}
	})

	t.Run("updates an existing user", func(t *testing.T) {
		if err := cli.run([]string{"admin", "adduser", "-email", existing.Email}); err != nil {
			t.Fatalf("cli.run() unexpected error = %v", err)
		}
		usr, err := usrRepo.GetUserByID(context.Background(), existing.ID)
		if err != nil {
			t.Fatalf("GetUserByID() failed, %v", err)
		}
		if !usr.IsActive {
			t.Error("user was not reactivated")
		}
		if err := usr.CheckPassword("s3cr3t"); err != nil {
			t.Error("password was not updated")
		}
	})
}

func Test_commandLine_generateInvoices(t *testing.T) {
	cli := setup(t)

	origNow := invoice.NowFunc
	invoice.NowFunc = func() time.Time { return time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { invoice.NowFunc = origNow })

	testutil.CreateStudent(t, stdRepo, "Ana Souza", "111", "450.00", true)
	testutil.CreateStudent(t, stdRepo, "Bruno Lima", "222", "500.00", true)

	tests := []cliTest{
		{name: "bad month", args: []string{"generateinvoices", "-month", "13", "-year", "2025"}, wantAnyErr: true},
		{name: "bad amount", args: []string{"generateinvoices", "-month", "3", "-year", "2025", "-amount", "nope"}, wantAnyErr: true},
		{name: "first run", args: []string{"generateinvoices", "-month", "3", "-year", "2025"}},
		{name: "second run is a no-op", args: []string{"generateinvoices", "-month", "3", "-year", "2025", "-amount", "475.00"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if tt.wantAnyErr {
				if err == nil {
					t.Error("cli.run() expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("cli.run() unexpected error = %v", err)
			}

			invoices, err := invRepo.FilterInvoices(context.Background(), nil, nil)
			if err != nil {
				t.Fatalf("FilterInvoices() failed, %v", err)
			}
			if len(invoices) != 2 {
				t.Errorf("len(invoices) = %v; want 2", len(invoices))
			}
		})
	}
}
