// Command transapi looks up available translations through a caching gateway.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/ZaguanLabs/transapi"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	return newApp(stdout, stderr).Run(append([]string{transapi.Name}, args...))
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      transapi.Name,
		Usage:     transapi.Description,
		Version:   transapi.FullVersion(),
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
				EnvVars: []string{"TRANSAPI_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Override log.level (debug, info, warn, error)",
			},
		},
		Commands: []*cli.Command{
			lookupCommand(),
			serveCommand(),
			cacheCommand(),
			configCommand(),
		},
		// Errors are returned to main instead of exiting inside the library.
		ExitErrHandler: func(*cli.Context, error) {},
	}
}
