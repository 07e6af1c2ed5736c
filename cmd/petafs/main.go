// Command petafs is a general purpose CLI interface to a PetaStore volume,
// in the manner of cmd/bs: a JSON config file names the backend, and
// subcommands operate on files within it.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/bobg/subcmd"

	"github.com/bobg/petastore"
	_ "github.com/bobg/petastore/store/file"
	_ "github.com/bobg/petastore/store/mem"
	_ "github.com/bobg/petastore/store/sqlite3"
	"github.com/bobg/petastore/vdisk"
)

type maincmd struct {
	store petastore.Store
	fs    *vdisk.FileSystem
}

func main() {
	config := flag.String("config", "petaconf.json", "path to config file")
	flag.Parse()

	if *config == "" {
		log.Fatal("config value not set")
	}

	ctx := context.Background()

	s, err := storeFromConfig(ctx, *config)
	if err != nil {
		log.Fatalf("loading store from %s: %s", *config, err)
	}

	fsys, err := vdisk.Initialize(ctx, s)
	if err != nil {
		log.Fatalf("initializing file system: %s", err)
	}

	err = subcmd.Run(ctx, maincmd{store: s, fs: fsys}, flag.Args())
	if err != nil {
		log.Fatal(err)
	}

	if err := fsys.Finalize(ctx); err != nil {
		log.Fatalf("finalizing file system: %s", err)
	}
}

func (c maincmd) Subcmds() subcmd.Map {
	return subcmd.Map{
		"read":   subcmd.Subcmd{F: c.read},
		"write":  subcmd.Subcmd{F: c.write},
		"rm":     subcmd.Subcmd{F: c.rm},
		"ls":     subcmd.Subcmd{F: c.ls},
		"verify": subcmd.Subcmd{F: c.verify},
	}
}
