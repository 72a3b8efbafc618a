package main

import "github.com/urfave/cli/v2"

// Flags the node reads at startup, trimmed to what the consensus
// engine (no P2P/RPC surface) actually reads.
var (
	dataDirFlag = &cli.StringFlag{
		Name:  "datadir",
		Usage: "Directory for the beacon chain database",
		Value: "./beacondata",
	}
	clearDBFlag = &cli.BoolFlag{
		Name:  "clear-db",
		Usage: "Clears any previously built beacon chain database at the data directory",
	}
	logFormatFlag = &cli.StringFlag{
		Name:  "log-format",
		Usage: "Log format, one of: text, json",
		Value: "text",
	}
	verbosityFlag = &cli.StringFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity (trace, debug, info, warn, error)",
		Value: "info",
	}
)

var appFlags = []cli.Flag{
	dataDirFlag,
	clearDBFlag,
	logFormatFlag,
	verbosityFlag,
}
