// Command gridrec records grid sessions without a display.
package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatalf("gridrec: %v", err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "gridrec",
		Usage:   "record color grid sessions from a serial device",
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "configuration file path",
				Value:   "config.yaml",
				EnvVars: []string{"COLORGRID_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			recordCommand(),
			portsCommand(),
			configCommand(),
			sessionsCommand(),
		},
	}
}
