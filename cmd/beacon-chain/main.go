// Command beacon-chain is a thin CLI entrypoint: it parses flags,
// opens (and optionally clears) the chain database, reports whether a
// canonical head exists, and exits. No consensus logic lives here.
package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/sirupsen/logrus"
	"github.com/strata-network/beacon/db/kv"
	"github.com/urfave/cli/v2"
)

var log = logrus.WithField("prefix", "main")

func startNode(c *cli.Context) error {
	dataDir := c.String(dataDirFlag.Name)

	db, err := kv.NewKVStore(context.Background(), dataDir)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.WithError(err).Error("failed to close database")
		}
	}()

	if c.Bool(clearDBFlag.Name) {
		if err := db.ClearDB(); err != nil {
			return err
		}
		db, err = kv.NewKVStore(context.Background(), dataDir)
		if err != nil {
			return err
		}
	}

	log.WithField("path", db.DatabasePath()).Info("beacon chain database ready")

	if _, err := db.HeadBlockRoot(context.Background()); err != nil {
		log.Warn("no canonical head found; node needs a genesis state before it can sync")
	}

	log.Info("beacon chain initialized")
	return nil
}

func main() {
	app := cli.NewApp()
	app.Name = "beacon-chain"
	app.Usage = "runs an Ethereum beacon chain consensus engine node"
	app.Action = startNode
	app.Flags = appFlags

	app.Before = func(c *cli.Context) error {
		switch c.String(logFormatFlag.Name) {
		case "json":
			logrus.SetFormatter(&logrus.JSONFormatter{})
		case "text":
			formatter := new(logrus.TextFormatter)
			formatter.TimestampFormat = "2006-01-02 15:04:05"
			formatter.FullTimestamp = true
			logrus.SetFormatter(formatter)
		default:
			return fmt.Errorf("unknown log format %s", c.String(logFormatFlag.Name))
		}

		level, err := logrus.ParseLevel(c.String(verbosityFlag.Name))
		if err != nil {
			return err
		}
		logrus.SetLevel(level)

		runtime.GOMAXPROCS(runtime.NumCPU())
		return nil
	}

	defer func() {
		if x := recover(); x != nil {
			log.Errorf("runtime panic: %v\n%s", x, string(debug.Stack()))
			panic(x)
		}
	}()

	if err := app.Run(os.Args); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}
