package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/jukwaa/core"
	"github.com/trezcool/jukwaa/core/user"
)

// addUser updates or creates an active user.User. The password policy does not apply here.
func (cli *commandLine) addUser(uname, email, pwd string, isSuperuser bool, groupName string) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	var grp core.Group
	if groupName != "" {
		var err error
		if grp, err = cli.usrSvc.GroupByName(ctx, groupName); err != nil {
			return err
		}
	}

	usr, err := cli.usrSvc.GetByUsernameOrEmail(ctx, uname)
	switch errors.Cause(err) {
	case nil:
		usr.Email = email
		usr.IsActive = true
		usr.IsSuperuser = usr.IsSuperuser || isSuperuser
		if err = usr.SetPassword(pwd); err != nil {
			return errors.Wrap(err, "hashing password")
		}
		if usr, err = cli.usrSvc.Save(ctx, usr); err != nil {
			return err
		}
		if grp.ID != "" && !usr.InGroup(grp.Name) {
			if err = cli.usrSvc.AddToGroup(ctx, usr.ID, grp.ID); err != nil {
				return err
			}
		}
		_, _ = fmt.Fprintf(cli.out, "user %q updated\n", usr.Username)
		return nil

	case user.ErrNotFound:
		usr, err = cli.usrSvc.Register(ctx, user.NewUser{
			Username:    uname,
			Email:       email,
			Password:    pwd,
			IsSuperuser: isSuperuser,
		})
		if err != nil {
			return err
		}
		if grp.ID != "" {
			if err = cli.usrSvc.AddToGroup(ctx, usr.ID, grp.ID); err != nil {
				return err
			}
		}
		_, _ = fmt.Fprintf(cli.out, "user %q created\n", usr.Username)
		return nil

	default:
		return err
	}
}

func (cli *commandLine) addGroup(name string) error {
	ng := user.NewGroup{Name: name}
	if err := ng.Validate(cli.validate); err != nil {
		return err
	}
	grp, err := cli.usrSvc.CreateGroup(context.Background(), ng)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "group %q created: %s\n", grp.Name, grp.ID)
	return nil
}

func (cli *commandLine) resetPassword(uname, pwd string) error {
	ctx := context.Background()
	usr, err := cli.usrSvc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return err
	}
	_, err = cli.usrSvc.SetPassword(ctx, usr, pwd)
	return err
}
