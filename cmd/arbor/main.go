// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/wingedpig/arbor/internal/app"
	"github.com/wingedpig/arbor/internal/config"
	"github.com/wingedpig/arbor/internal/logging"
)

var version = "0.1"

func main() {
	logging.Setup()

	if len(os.Args) > 1 && os.Args[1] == "init" {
		if err := runInit(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	var (
		configPath  string
		host        string
		port        int
		showVersion bool
		debug       bool
	)
	flag.StringVar(&configPath, "config", "", "Path to config file (default: ./arbor.hjson, then ~/.arbor/arbor.hjson)")
	flag.StringVar(&configPath, "c", "", "Path to config file (short)")
	flag.StringVar(&host, "host", "", "HTTP server host (overrides config)")
	flag.IntVar(&port, "port", 0, "HTTP server port (overrides config)")
	flag.BoolVar(&showVersion, "version", false, "Show version")
	flag.BoolVar(&showVersion, "v", false, "Show version (short)")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.Parse()

	if showVersion {
		fmt.Printf("arbor %s\n", version)
		return
	}

	if configPath == "" {
		configPath = config.FindConfig()
	}
	if configPath != "" {
		slog.Info("using config", "path", configPath)
	}

	application, err := app.New(app.Options{
		ConfigPath: configPath,
		Host:       host,
		Port:       port,
		Debug:      debug,
	})
	if err != nil {
		slog.Error("failed to create app", "error", err)
		os.Exit(1)
	}
	if err := application.Run(context.Background()); err != nil {
		slog.Error("app error", "error", err)
		os.Exit(1)
	}
}

// runInit handles `arbor init`: it writes a commented config file.
func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	global := fs.Bool("global", false, "Write ~/.arbor/arbor.hjson instead of ./arbor.hjson")
	force := fs.Bool("force", false, "Overwrite an existing file")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), `Usage: arbor init [options]

Create an arbor.hjson configuration file with every option commented.

Options:`)
		fs.PrintDefaults()
	}
	fs.Parse(args)

	path := config.FileName
	if *global {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(home, ".arbor", config.FileName)
	}
	if err := config.WriteTemplate(path, *force); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}
