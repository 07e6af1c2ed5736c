// Command petadump is a debug tool: it fetches one blob from a PetaStore
// backend and prints its decoded header and record array, followed by a
// standard hex dump of the raw bytes, per spec.md §1's mention of "the
// debug hexdump" as peripheral tooling this module doesn't otherwise
// specify.
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/bobg/petastore"
	"github.com/bobg/petastore/block"
	_ "github.com/bobg/petastore/store/file"
	_ "github.com/bobg/petastore/store/mem"
	_ "github.com/bobg/petastore/store/sqlite3"
)

func main() {
	config := flag.String("config", "petaconf.json", "path to config file")
	id := flag.Uint64("id", 0, "id of blob to dump")
	flag.Parse()

	ctx := context.Background()

	s, err := storeFromConfig(ctx, *config)
	if err != nil {
		log.Fatalf("loading store from %s: %s", *config, err)
	}

	b, err := s.Get(ctx, petastore.ID(*id))
	if err != nil {
		log.Fatalf("reading blob %d: %s", *id, err)
	}

	fmt.Printf("blob %d: %d bytes\n", *id, len(b))
	dumpDecoded(b)
	fmt.Println("---")
	dumper := hex.Dumper(os.Stdout)
	dumper.Write(b)
	dumper.Close()
}

func dumpDecoded(b []byte) {
	h, err := block.ReadHeader(b)
	if err != nil {
		fmt.Println("no valid header (data blob, or too short to be one)")
		return
	}

	fmt.Printf("type: %s\n", h.Type)
	fmt.Printf("flags: %#x\n", h.Flags)
	fmt.Printf("prev: %d\n", h.Prev)
	fmt.Printf("next: %d\n", h.Next)

	switch h.Type {
	case block.Control:
		pre, err := block.ReadControlPreamble(b)
		if err != nil {
			fmt.Printf("malformed control preamble: %s\n", err)
			return
		}
		fmt.Printf("directory: %d\n", pre.Directory)
		fmt.Printf("start: %d\n", pre.Start)
		n := block.PopulatedSlots(b)
		fmt.Printf("populated slots: %d\n", n)
		for i := 0; i < n; i++ {
			fmt.Printf("  slot %d: blob %d\n", i, block.BlobIDAt(b, i))
		}
	case block.Dir:
		entries, err := block.DirEntries(b)
		if err != nil {
			fmt.Printf("malformed dir entries: %s\n", err)
			return
		}
		for i, e := range entries {
			if e.Tombstoned() {
				fmt.Printf("  entry %d: (tombstoned)\n", i)
				continue
			}
			fmt.Printf("  entry %d: %q -> control block %d\n", i, e.Name, e.ControlBlob)
		}
	}
}
