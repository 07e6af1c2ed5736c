package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/pkg/errors"

	"github.com/bobg/petastore/fsck"
	"github.com/bobg/petastore/node"
)

func (c maincmd) read(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("read", flag.ContinueOnError)
	name := fset.String("name", "", "name of file to read")
	err := fset.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}
	if *name == "" {
		return errors.New("must supply -name")
	}

	f, err := c.fs.Open(ctx, *name, "r")
	if err != nil {
		return errors.Wrapf(err, "opening %q", *name)
	}
	defer f.Close()

	_, err = io.Copy(os.Stdout, f)
	return errors.Wrap(err, "copying to stdout")
}

func (c maincmd) write(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("write", flag.ContinueOnError)
	var (
		name = fset.String("name", "", "name of file to write")
		mode = fset.String("mode", "w", "open mode: w (create/truncate) or a (append)")
	)
	err := fset.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}
	if *name == "" {
		return errors.New("must supply -name")
	}

	f, err := c.fs.Open(ctx, *name, *mode)
	if err != nil {
		return errors.Wrapf(err, "opening %q", *name)
	}
	defer f.Close()

	n, err := io.Copy(f, os.Stdin)
	if err != nil {
		return errors.Wrap(err, "copying from stdin")
	}
	fmt.Fprintf(os.Stderr, "wrote %d bytes\n", n)
	return nil
}

func (c maincmd) rm(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("rm", flag.ContinueOnError)
	name := fset.String("name", "", "name of file to remove")
	err := fset.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}
	if *name == "" {
		return errors.New("must supply -name")
	}
	return errors.Wrapf(c.fs.Remove(ctx, *name), "removing %q", *name)
}

func (c maincmd) ls(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("ls", flag.ContinueOnError)
	err := fset.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}

	iofs := c.fs.AsIOFS(ctx)
	entries, err := fs.ReadDir(iofs, ".")
	if err != nil {
		return errors.Wrap(err, "listing files")
	}
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			return errors.Wrapf(err, "statting %q", e.Name())
		}
		fmt.Printf("%10d  %s\n", info.Size(), e.Name())
	}
	return nil
}

func (c maincmd) verify(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("verify", flag.ContinueOnError)
	err := fset.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}

	arena := node.NewArena(c.store)
	report, err := fsck.Check(ctx, arena)
	if err != nil {
		return errors.Wrap(err, "checking file system")
	}

	fmt.Printf("dir blocks: %d, control chains: %d, control blocks: %d\n",
		report.DirBlocks, report.ControlChains, report.ControlBlocks)
	if len(report.Violations) == 0 {
		fmt.Println("no violations found")
		return nil
	}
	for _, v := range report.Violations {
		fmt.Println(v.String())
	}
	return fmt.Errorf("found %d violations", len(report.Violations))
}
