package main

// migrate runs a goose command, e.g. `up` or `down-to 1`, against the embedded migrations.
func (cli *commandLine) migrate(args []string) error {
	return gooseRunFunc(cli.db, args[0], args[1:]...)
}
