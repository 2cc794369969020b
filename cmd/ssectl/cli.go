// Package main provides ssectl, a command-line client over the scheme
// registry in package sse: keygen/setup/token/search run a scheme locally
// against files on disk, and serve/query split the same operations across
// a websocket connection via net/wsrpc.
package main

import (
	"io"
	"os"

	"github.com/urfave/cli/v2"
)

// default output of the ssectl operational commands.
var output io.Writer = os.Stdout

// Automatically set through -ldflags as a build-time version stamp.
var (
	version   = "dev"
	gitCommit = "none"
	buildDate = "unknown"
)

var configFlag = &cli.StringFlag{
	Name:     "config",
	Usage:    "Path to a TOML scheme configuration file (scheme name + params table).",
	Required: true,
}

var keyFlag = &cli.StringFlag{
	Name:     "key",
	Usage:    "Path to a serialized Key produced by keygen.",
	Required: true,
}

var dbFlag = &cli.StringFlag{
	Name:     "db",
	Usage:    "Path to a JSON database file: keyword -> list of hex-encoded identifiers.",
	Required: true,
}

var edbFlag = &cli.StringFlag{
	Name:     "edb",
	Usage:    "Path to a serialized EDB produced by setup.",
	Required: true,
}

var serveEDBFlag = &cli.StringFlag{
	Name:  "edb",
	Usage: "Path to a serialized EDB produced by setup. Required unless --store already holds an imported EDB.",
}

var storeFlag = &cli.StringFlag{
	Name:  "store",
	Usage: "Directory to persist the served EDB in (storage.BoltDict + BoltArray) instead of holding it only in memory.",
}

var tokenFlag = &cli.StringFlag{
	Name:     "token",
	Usage:    "Path to a serialized Token produced by token.",
	Required: true,
}

var keywordFlag = &cli.StringFlag{
	Name:     "keyword",
	Usage:    "Keyword to generate a search token for.",
	Required: true,
}

var outFlag = &cli.StringFlag{
	Name:     "out",
	Usage:    "Path to write the command's output to.",
	Required: true,
}

var addrFlag = &cli.StringFlag{
	Name:  "addr",
	Usage: "Listening address for serve, e.g. :8443.",
	Value: ":8443",
}

var nameFlag = &cli.StringFlag{
	Name:  "name",
	Usage: "Name the served EDB is addressed by.",
	Value: "default",
}

var urlFlag = &cli.StringFlag{
	Name:     "url",
	Usage:    "Websocket URL of a running ssectl serve instance, e.g. ws://host:8443/search.",
	Required: true,
}

var schemeFlag = &cli.StringFlag{
	Name:     "scheme",
	Usage:    "Name of the scheme the remote EDB was built with.",
	Required: true,
}

func toArray(flags ...cli.Flag) []cli.Flag {
	return flags
}

var appCommands = []*cli.Command{
	{
		Name:   "keygen",
		Usage:  "Generate a fresh Key for the scheme named in --config.",
		Flags:  toArray(configFlag, outFlag),
		Action: keygenCmd,
	},
	{
		Name:   "setup",
		Usage:  "Build an encrypted database (EDB) from a plaintext database and a Key.",
		Flags:  toArray(configFlag, keyFlag, dbFlag, outFlag),
		Action: setupCmd,
	},
	{
		Name:   "token",
		Usage:  "Generate a search token for one keyword.",
		Flags:  toArray(configFlag, keyFlag, keywordFlag, outFlag),
		Action: tokenCmd,
	},
	{
		Name:   "search",
		Usage:  "Evaluate a token against a local EDB and print the recovered identifiers.",
		Flags:  toArray(configFlag, edbFlag, tokenFlag),
		Action: searchCmd,
	},
	{
		Name:   "serve",
		Usage:  "Host an EDB behind a websocket Search endpoint (net/wsrpc).",
		Flags:  toArray(configFlag, serveEDBFlag, addrFlag, nameFlag, storeFlag),
		Action: serveCmd,
	},
	{
		Name:   "query",
		Usage:  "Evaluate a token against a remote EDB served by ssectl serve.",
		Flags:  toArray(urlFlag, schemeFlag, nameFlag, tokenFlag),
		Action: queryCmd,
	},
	{
		Name:   "stats",
		Usage:  "Print a plaintext database's summary counts (postings, keywords, files).",
		Flags:  toArray(dbFlag),
		Action: statsCmd,
	},
	{
		Name:  "schemes",
		Usage: "List the names of all registered schemes.",
		Action: func(c *cli.Context) error {
			for _, n := range registeredSchemeNames() {
				if _, err := io.WriteString(output, n+"\n"); err != nil {
					return err
				}
			}
			return nil
		},
	},
}

// CLI builds the ssectl urfave/cli application.
func CLI() *cli.App {
	app := cli.NewApp()
	app.Name = "ssectl"
	app.Version = version
	app.Usage = "command-line client for the go-sse searchable encryption schemes"
	app.Commands = appCommands
	return app
}
