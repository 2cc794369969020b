package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/jezachen/go-sse/net/wsrpc"
)

// queryCmd dials a running ssectl serve instance and performs one remote
// Search, printing the recovered identifiers.
func queryCmd(c *cli.Context) error {
	tokenBytes, err := os.ReadFile(c.String("token"))
	if err != nil {
		return err
	}
	client, err := wsrpc.Dial(c.String("url"))
	if err != nil {
		return fmt.Errorf("ssectl: query: %w", err)
	}
	defer client.Close()

	resultBytes, err := client.Search(c.String("scheme"), c.String("name"), tokenBytes)
	if err != nil {
		return fmt.Errorf("ssectl: query: %w", err)
	}
	ids, err := unmarshalResultIDs(resultBytes)
	if err != nil {
		return fmt.Errorf("ssectl: query: %w", err)
	}
	for _, id := range ids {
		fmt.Fprintln(output, hex.EncodeToString(id))
	}
	return nil
}
