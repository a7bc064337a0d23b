package main

import (
	"database/sql"
	"flag"
	"fmt"
	"io"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/trezcool/jukwaa/core/forum"
	"github.com/trezcool/jukwaa/core/user"
	"github.com/trezcool/jukwaa/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword       // mockable
	gooseRunFunc     = database.RunMigrations // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db       *sql.DB
	usrSvc   *user.Service
	forumSvc *forum.Service
	validate *validator.Validate
	out      io.Writer
}

func (cli *commandLine) printUsage() {
	_, _ = fmt.Fprintln(cli.out, "Usage:")
	_, _ = fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose migration command (up, down, status, ...)")
	_, _ = fmt.Fprintln(cli.out, "  adduser -username USERNAME -email EMAIL [-superuser] [-group NAME] - create or update a user")
	_, _ = fmt.Fprintln(cli.out, "  addgroup -name NAME - create a group")
	_, _ = fmt.Fprintln(cli.out, "  resetpassword -username USERNAME|EMAIL - reset user's password")
	_, _ = fmt.Fprintln(cli.out, "  reconcilevotes [-fix] - list replies whose vote count drifted, and fix them")
}

func (cli *commandLine) promptPassword() (string, error) {
	_, _ = fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	_, _ = fmt.Fprintln(cli.out)
	return string(pwd), err
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ExitOnError)
	addUserUname := addUserCmd.String("username", "", "The user's username. The password will be prompted next.")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserSuper := addUserCmd.Bool("superuser", false, "Make the user a superuser.")
	addUserGroup := addUserCmd.String("group", "", "The name of a group to add the user to.")

	addGroupCmd := flag.NewFlagSet("addgroup", flag.ExitOnError)
	addGroupName := addGroupCmd.String("name", "", "The group name.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	reconcileCmd := flag.NewFlagSet("reconcilevotes", flag.ExitOnError)
	reconcileFix := reconcileCmd.Bool("fix", false, "Reset the drifted counters to their number of votes.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserUname == "" || *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserUname, *addUserEmail, pwd, *addUserSuper, *addUserGroup)

	case "addgroup":
		if err := addGroupCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addGroupName == "" {
			addGroupCmd.Usage()
			return errHelp
		}
		return cli.addGroup(*addGroupName)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordUname, pwd)

	case "reconcilevotes":
		if err := reconcileCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.reconcileVotes(*reconcileFix)

	default:
		cli.printUsage()
		return errHelp
	}
}
