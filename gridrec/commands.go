package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/itohio/colorgrid/pkg/config"
	"github.com/itohio/colorgrid/pkg/export"
	"github.com/itohio/colorgrid/pkg/frame"
	"github.com/itohio/colorgrid/pkg/link"
	"github.com/urfave/cli/v2"
)

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func portsCommand() *cli.Command {
	return &cli.Command{
		Name:  "ports",
		Usage: "list available serial ports",
		Action: func(c *cli.Context) error {
			ports, err := link.Ports()
			if err != nil {
				return err
			}
			if len(ports) == 0 {
				fmt.Fprintln(c.App.Writer, "No serial ports found")
				return nil
			}
			for _, p := range ports {
				fmt.Fprintf(c.App.Writer, "%s\t%s\n", p.Name, p.Description)
			}
			return nil
		},
	}
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "manage the configuration file",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "write the default configuration",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "overwrite an existing file",
					},
				},
				Action: configInitAction,
			},
			{
				Name:  "check",
				Usage: "load and validate the configuration",
				Action: func(c *cli.Context) error {
					cfg, err := loadConfig(c)
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "%s: %dx%d grid, range [%g, %g], tick %s\n",
						c.String("config"), cfg.Grid.Rows, cfg.Grid.Columns,
						cfg.Range.Min, cfg.Range.Max, cfg.TickInterval())
					return nil
				},
			},
		},
	}
}

func configInitAction(c *cli.Context) error {
	path := c.String("config")
	if !c.Bool("force") {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists, use --force to overwrite", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	if err := config.Default().Save(path); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Wrote %s\n", path)
	return nil
}

func sessionsCommand() *cli.Command {
	return &cli.Command{
		Name:  "sessions",
		Usage: "inspect the session archive",
		Flags: []cli.Flag{archiveFlag()},
		Action: func(c *cli.Context) error {
			a, err := openArchive(c)
			if err != nil {
				return err
			}
			defer a.Close()

			sessions, err := a.Sessions(c.Context)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTARTED\tGRID\tFRAMES")
			for _, s := range sessions {
				fmt.Fprintf(tw, "%s\t%s\t%dx%d\t%d\n", s.ID, s.Start.Format(export.SheetTimeLayout), s.Rows, s.Columns, s.Frames)
			}
			return tw.Flush()
		},
		Subcommands: []*cli.Command{
			{
				Name:      "dump",
				Usage:     "print the frames of one session",
				ArgsUsage: "<session id>",
				Flags: []cli.Flag{
					archiveFlag(),
					&cli.BoolFlag{
						Name:  "wire",
						Usage: "write frames in the device wire format, suitable for record --replay",
					},
				},
				Action: dumpAction,
			},
		},
	}
}

func archiveFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "archive",
		Usage: "session archive path (defaults to the configured export archive)",
	}
}

func openArchive(c *cli.Context) (*export.Archive, error) {
	path := c.String("archive")
	if path == "" {
		cfg, err := loadConfig(c)
		if err != nil {
			return nil, err
		}
		if cfg.Export.Archive == "" {
			return nil, errors.New("no archive configured, set export.archive or pass --archive")
		}
		path = filepath.Join(cfg.Export.Dir, cfg.Export.Archive)
	}
	return export.OpenArchive(path)
}

func dumpAction(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return errors.New("expected exactly one session id")
	}
	id, err := uuid.Parse(c.Args().First())
	if err != nil {
		return fmt.Errorf("invalid session id: %v", err)
	}

	a, err := openArchive(c)
	if err != nil {
		return err
	}
	defer a.Close()

	sessions, err := a.Sessions(c.Context)
	if err != nil {
		return err
	}
	var summary *export.Summary
	for i := range sessions {
		if sessions[i].ID == id {
			summary = &sessions[i]
			break
		}
	}
	if summary == nil {
		return fmt.Errorf("session %s not found", id)
	}

	entries, err := a.Entries(c.Context, id)
	if err != nil {
		return err
	}

	if c.Bool("wire") {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		w := frame.NewWriter(c.App.Writer, summary.Rows, summary.Columns,
			cfg.Protocol.RowDelimiter.Byte(), cfg.Protocol.ValueDelimiter.Byte())
		for _, e := range entries {
			if err := w.Write(e.Frame); err != nil {
				return err
			}
		}
		return w.Close()
	}

	var sb strings.Builder
	for _, e := range entries {
		sb.Reset()
		sb.WriteString(e.Time.Format(export.EntryTimeLayout))
		for _, v := range e.Frame {
			sb.WriteByte(',')
			sb.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		}
		fmt.Fprintln(c.App.Writer, sb.String())
	}
	return nil
}
