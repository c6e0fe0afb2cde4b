package db

import (
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"
)

// PageArgs reads "<doc> <page>" from the command arguments.
func PageArgs(c *cli.Context) (string, int, error) {
	if c.NArg() != 2 {
		return "", 0, fmt.Errorf("usage: %s <doc> <page>", c.Command.HelpName)
	}
	pageNo, err := strconv.Atoi(c.Args().Get(1))
	if err != nil || pageNo < 0 {
		return "", 0, fmt.Errorf("invalid page number: %s", c.Args().Get(1))
	}
	return c.Args().First(), pageNo, nil
}
