// Copyright 2026 The jvmstack Authors
// This file is part of the jvmstack library.

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"

	"github.com/ethereum/go-ethereum/log"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/naoina/toml"
	"github.com/urfave/cli/v2"

	"github.com/jvmstack/jvmstack/core/analysis"
	"github.com/jvmstack/jvmstack/core/vm"
	"github.com/jvmstack/jvmstack/internal/debug"
)

var (
	configFileFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	verbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=detail",
		Value: 3,
	}
	trackLocalsFlag = &cli.BoolFlag{
		Name:  "track-locals",
		Usage: "Remember values stored into local variables within a basic block",
	}
	workersFlag = &cli.IntFlag{
		Name:  "workers",
		Usage: "Number of methods analysed concurrently (0 = automatic)",
	}
	debugFlag = &cli.BoolFlag{
		Name:  "debug",
		Usage: "Log every simulated instruction",
	}
	methodFlag = &cli.StringFlag{
		Name:  "method",
		Usage: "Only trace the method with this name",
	}

	commonFlags = []cli.Flag{configFileFlag, verbosityFlag, trackLocalsFlag, workersFlag, debugFlag}
)

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("field '%s' is not defined in %s", field, rt.String())
	},
}

type engineConfig struct {
	TrackLocals bool
	Debug       bool
	DebugEvery  uint32 `toml:",omitempty"`
}

type analysisConfig struct {
	Workers int
}

type logConfig struct {
	Verbosity int
}

type stackdumpConfig struct {
	Engine   engineConfig
	Analysis analysisConfig
	Log      logConfig
}

var defaultConfig = stackdumpConfig{
	Log: logConfig{Verbosity: 3},
}

func loadConfig(file string, cfg *stackdumpConfig) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}

// makeConfig loads the config file, if any, and applies the command line
// flags on top of it.
func makeConfig(ctx *cli.Context) (stackdumpConfig, error) {
	cfg := defaultConfig
	if file := ctx.String(configFileFlag.Name); file != "" {
		if err := loadConfig(file, &cfg); err != nil {
			return cfg, err
		}
	}
	if ctx.IsSet(trackLocalsFlag.Name) {
		cfg.Engine.TrackLocals = ctx.Bool(trackLocalsFlag.Name)
	}
	if ctx.IsSet(debugFlag.Name) {
		cfg.Engine.Debug = ctx.Bool(debugFlag.Name)
	}
	if ctx.IsSet(workersFlag.Name) {
		cfg.Analysis.Workers = ctx.Int(workersFlag.Name)
	}
	if ctx.IsSet(verbosityFlag.Name) {
		cfg.Log.Verbosity = ctx.Int(verbosityFlag.Name)
	}
	return cfg, nil
}

func (c *stackdumpConfig) engine() vm.Config {
	return vm.Config{
		TrackLocals: c.Engine.TrackLocals,
		Debug:       c.Engine.Debug,
		DebugEvery:  c.Engine.DebugEvery,
	}
}

func (c *stackdumpConfig) analyzer() analysis.Config {
	return analysis.Config{Workers: c.Analysis.Workers, Engine: c.engine()}
}

// setupLogging installs a terminal handler on stderr. Colour is used only
// when stderr is a terminal.
func setupLogging(cfg *stackdumpConfig) {
	var (
		output   = io.Writer(os.Stderr)
		usecolor = (isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())) && os.Getenv("TERM") != "dumb"
	)
	if usecolor {
		output = colorable.NewColorableStderr()
	}
	level := log.FromLegacyLevel(cfg.Log.Verbosity)
	if cfg.Engine.Debug {
		debug.EnableDebugLogs(true)
		level = log.LevelTrace
	}
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(output, level, usecolor)))
}

// dumpConfig is the dumpconfig command.
func dumpConfig(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	out, err := tomlSettings.Marshal(&cfg)
	if err != nil {
		return err
	}
	_, err = ctx.App.Writer.Write(out)
	return err
}
