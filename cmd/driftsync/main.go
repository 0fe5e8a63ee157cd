package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/driftsync/driftsync"
	"github.com/driftsync/driftsync/utils"
)

func main() {
	app := &cli.Command{
		Name:  "driftsync",
		Usage: "inspect and drive a delta-state sync pair",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to a yaml config file",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "debug level logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "repl",
				Usage: "interactive server/client batcher pair",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, err := loadConfig(cmd.String("config"))
					if err != nil {
						return err
					}
					log := newLogger(cfg, cmd.Bool("debug"))
					repl := NewREPL(cfg, log)
					return repl.Run()
				},
			},
			{
				Name:  "demo",
				Usage: "replicate a sample tree once and print both sides",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, err := loadConfig(cmd.String("config"))
					if err != nil {
						return err
					}
					return runDemo(newLogger(cfg, cmd.Bool("debug")))
				},
			},
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func newLogger(cfg *Config, debug bool) utils.Logger {
	level := cfg.Level()
	if debug {
		level = slog.LevelDebug
	}
	return utils.NewDefaultLogger(level)
}

func runDemo(log utils.Logger) error {
	reg := driftsync.NewRegistry()
	playerType := driftsync.TypeHash("Player")
	reg.RegisterServer(playerType, func(id int32) *driftsync.Class {
		return driftsync.NewClass(driftsync.Key{Type: playerType, ID: id}, true)
	})
	reg.RegisterClient(playerType, func(id int32) *driftsync.Class {
		return driftsync.NewClass(driftsync.Key{Type: playerType, ID: id}, false)
	})

	server := driftsync.NewBatcher(true, reg, &driftsync.BatcherOptions{Logger: log})
	client := driftsync.NewBatcher(false, reg, &driftsync.BatcherOptions{Logger: log})

	player, err := server.NewClassOf(playerType)
	if err != nil {
		return err
	}
	hp := driftsync.NewIntField(1, true, 100)
	pos := driftsync.NewVector3Field(2, true, driftsync.Vector3{X: 1, Y: 2, Z: 3})
	player.AddField(hp)
	player.AddField(pos)

	if err := client.Unbatch(server.Batch(true)); err != nil {
		return err
	}
	hp.Modify(50, driftsync.ModifyPercent)
	if err := client.Unbatch(server.Batch(false)); err != nil {
		return err
	}

	mirror, _ := client.Class(player.Key())
	fmt.Printf("server %s hp=%s pos=%s\n", player.Key(), hp.String(), pos.String())
	mhp, _ := mirror.Field(1)
	mpos, _ := mirror.Field(2)
	fmt.Printf("client %s hp=%s pos=%s\n", mirror.Key(), mhp.String(), mpos.String())
	return nil
}
