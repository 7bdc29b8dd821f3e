package main

import (
	"context"
	"fmt"

	"github.com/trezcool/cronograma/core"
	"github.com/trezcool/cronograma/core/user"
)

func (cli *commandLine) seedSubjects(uname string) error {
	ctx := context.Background()
	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: core.CleanString(uname, true /* lower */)})
	if err != nil {
		return err
	}
	seeded, err := cli.schedSvc.SeedSubjects(ctx, usr.ID)
	if err != nil {
		return err
	}
	if seeded {
		fmt.Printf("default subjects created for %s\n", usr.Username)
	} else {
		fmt.Printf("%s already has subjects\n", usr.Username)
	}
	return nil
}
