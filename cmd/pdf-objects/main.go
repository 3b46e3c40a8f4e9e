// pdf-clown-sub003 - an editable object store for PDF files
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Pdf-objects inspects and compacts PDF files.
//
// Usage:
//
//	pdf-objects [flags] command file.pdf...
//
// The commands are:
//
//	objects   list the objects in the file
//	labels    show the page label of every page
//	threads   list the article threads and their beads
//	dests     list the named destinations
//	compact   rebuild the index trees and rewrite the file in place
//
// Settings are read from pdf-objects.yaml in the current directory or in
// $HOME/.config, and from environment variables PDFOBJ_JOBS,
// PDFOBJ_REPAIR and PDFOBJ_MAX_ENTRIES.  Command line flags take
// precedence.
package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"

	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

// Config holds the settings of the command.
type Config struct {
	// Jobs is the number of files processed concurrently.
	Jobs int `mapstructure:"jobs"`

	// Repair enables the reconstruction of damaged cross-reference
	// tables.
	Repair bool `mapstructure:"repair"`

	// MaxEntries is the node size used by the compact command.
	MaxEntries int `mapstructure:"max_entries"`
}

func initConfig() (*Config, error) {
	cfg := &Config{}
	v := viper.New()
	v.SetConfigName("pdf-objects")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home + "/.config")
	}
	v.SetEnvPrefix("PDFOBJ")
	v.AutomaticEnv()

	v.SetDefault("jobs", runtime.GOMAXPROCS(0))
	v.SetDefault("repair", false)
	v.SetDefault("max_entries", 64)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

var commands = map[string]func(w io.Writer, fname string, cfg *Config) error{
	"objects": listObjects,
	"labels":  listLabels,
	"threads": listThreads,
	"dests":   listDests,
	"compact": compact,
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintln(out, "usage: pdf-objects [flags] objects|labels|threads|dests|compact file.pdf...")
	flag.PrintDefaults()
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("pdf-objects: ")

	cfg, err := initConfig()
	if err != nil {
		log.Fatalf("init config failed: %v", err)
	}

	flag.Usage = usage
	jobs := flag.Int("j", cfg.Jobs, "number of files to process concurrently")
	repair := flag.Bool("repair", cfg.Repair, "reconstruct damaged cross-reference tables")
	maxEntries := flag.Int("max-entries", cfg.MaxEntries, "node size for the compact command")
	flag.Parse()
	cfg.Jobs = *jobs
	cfg.Repair = *repair
	cfg.MaxEntries = *maxEntries

	if flag.NArg() < 2 {
		usage()
		os.Exit(2)
	}
	run, ok := commands[flag.Arg(0)]
	if !ok {
		log.Printf("unknown command %q", flag.Arg(0))
		usage()
		os.Exit(2)
	}
	files := flag.Args()[1:]

	failed := processFiles(os.Stdout, files, cfg, run)
	if failed > 0 {
		log.Fatalf("%d of %d files failed", failed, len(files))
	}
}

// processFiles runs cmd on all files, using up to cfg.Jobs goroutines.
// Every document is owned by a single goroutine.  The output is written
// to w in the order of the file names.  The return value is the number of
// files which could not be processed.
func processFiles(w io.Writer, files []string, cfg *Config, cmd func(io.Writer, string, *Config) error) int {
	decorate := false
	if f, ok := w.(*os.File); ok {
		decorate = term.IsTerminal(int(f.Fd()))
	}

	outputs := make([]bytes.Buffer, len(files))
	errs := make([]error, len(files))

	g := &errgroup.Group{}
	g.SetLimit(max(cfg.Jobs, 1))
	for i, fname := range files {
		g.Go(func() error {
			errs[i] = cmd(&outputs[i], fname, cfg)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for i, fname := range files {
		if errs[i] != nil {
			log.Printf("%s: %v", fname, errs[i])
			failed++
			continue
		}
		if outputs[i].Len() == 0 {
			continue
		}
		if len(files) > 1 {
			if decorate {
				fmt.Fprintf(w, "\033[1m%s\033[0m\n", fname)
			} else {
				fmt.Fprintf(w, "%s:\n", fname)
			}
		}
		outputs[i].WriteTo(w)
	}
	return failed
}
