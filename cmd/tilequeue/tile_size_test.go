package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/ducdk90/tilequeue/config"
)

func contextWithStringFlag(t *testing.T, name, value string) *cli.Context {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.String(name, "", "")
	if err := fs.Set(name, value); err != nil {
		t.Fatalf("fs.Set: %v", err)
	}
	return cli.NewContext(cli.NewApp(), fs, nil)
}

func TestTileSizeKeysFromKeysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.txt")
	if err := os.WriteFile(path, []byte("a/1.pbf\n\nb/2.pbf\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	c := contextWithStringFlag(t, "keys-file", path)
	keys, err := tileSizeKeys(c, &config.Config{})
	if err != nil {
		t.Fatalf("tileSizeKeys: %v", err)
	}
	if len(keys) != 2 || keys[0] != "a/1.pbf" || keys[1] != "b/2.pbf" {
		t.Fatalf("tileSizeKeys = %v, want [a/1.pbf b/2.pbf]", keys)
	}
}

func TestTileSizeKeysRequiresKeysFileForNonDirectoryStore(t *testing.T) {
	c := contextWithStringFlag(t, "keys-file", "")
	cfg := &config.Config{}
	cfg.Store.Type = "s3"
	if _, err := tileSizeKeys(c, cfg); err == nil {
		t.Fatal("expected an error when store.type is not directory and no keys-file is given")
	}
}
