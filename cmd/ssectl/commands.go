package main

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/jezachen/go-sse"
	"github.com/jezachen/go-sse/internal/layout/dbstats"
)

// loadDatabase reads a JSON file mapping keyword -> hex-encoded posting
// list into an sse.Database.
func loadDatabase(path string) (sse.Database, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var hexDB map[string][]string
	if err := json.Unmarshal(raw, &hexDB); err != nil {
		return nil, fmt.Errorf("ssectl: parsing database %s: %w", path, err)
	}
	db := make(sse.Database, len(hexDB))
	for w, ids := range hexDB {
		decoded := make([][]byte, len(ids))
		for i, id := range ids {
			b, err := hex.DecodeString(id)
			if err != nil {
				return nil, fmt.Errorf("ssectl: database %s: keyword %q: %w", path, w, err)
			}
			decoded[i] = b
		}
		db[w] = decoded
	}
	return db, nil
}

func keygenCmd(c *cli.Context) error {
	scheme, cfg, err := loadSchemeConfig(c.String("config"))
	if err != nil {
		return err
	}
	keyBytes, err := scheme.KeyGen(cfg, rand.Reader)
	if err != nil {
		return fmt.Errorf("ssectl: keygen: %w", err)
	}
	return os.WriteFile(c.String("out"), keyBytes, 0o600)
}

func setupCmd(c *cli.Context) error {
	scheme, cfg, err := loadSchemeConfig(c.String("config"))
	if err != nil {
		return err
	}
	keyBytes, err := os.ReadFile(c.String("key"))
	if err != nil {
		return err
	}
	db, err := loadDatabase(c.String("db"))
	if err != nil {
		return err
	}
	edbBytes, err := scheme.EDBSetup(cfg, keyBytes, db, rand.Reader)
	if err != nil {
		return fmt.Errorf("ssectl: setup: %w", err)
	}
	return os.WriteFile(c.String("out"), edbBytes, 0o600)
}

func tokenCmd(c *cli.Context) error {
	scheme, cfg, err := loadSchemeConfig(c.String("config"))
	if err != nil {
		return err
	}
	keyBytes, err := os.ReadFile(c.String("key"))
	if err != nil {
		return err
	}
	tokenBytes, err := scheme.TokenGen(cfg, keyBytes, c.String("keyword"))
	if err != nil {
		return fmt.Errorf("ssectl: token: %w", err)
	}
	return os.WriteFile(c.String("out"), tokenBytes, 0o600)
}

func searchCmd(c *cli.Context) error {
	scheme, cfg, err := loadSchemeConfig(c.String("config"))
	if err != nil {
		return err
	}
	edbBytes, err := os.ReadFile(c.String("edb"))
	if err != nil {
		return err
	}
	tokenBytes, err := os.ReadFile(c.String("token"))
	if err != nil {
		return err
	}
	res, err := scheme.Search(cfg, edbBytes, tokenBytes)
	if err != nil {
		return fmt.Errorf("ssectl: search: %w", err)
	}
	return printResult(res)
}

// statsCmd prints the three summary counts of a plaintext database file:
// total postings N, distinct keywords K and distinct files F. SSE2's
// param_n is F, which must come from a scan like this one.
func statsCmd(c *cli.Context) error {
	db, err := loadDatabase(c.String("db"))
	if err != nil {
		return err
	}
	s := dbstats.Compute(dbstats.Database(db))
	_, err = fmt.Fprintf(output, "postings: %d\nkeywords: %d\nfiles: %d\n",
		s.TotalPostings, s.Keywords, s.Files)
	return err
}

func printResult(res sse.Result) error {
	for _, id := range res.IDs {
		fmt.Fprintln(output, hex.EncodeToString(id))
	}
	return nil
}
