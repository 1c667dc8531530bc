// Copyright 2026 The jvmstack Authors
// This file is part of the jvmstack library.

// stackdump simulates the operand stack of methods in textual listings.
package main

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/automaxprocs/maxprocs"
	"golang.org/x/sync/errgroup"

	"github.com/jvmstack/jvmstack/core/analysis"
	"github.com/jvmstack/jvmstack/core/asm"
	"github.com/jvmstack/jvmstack/core/types"
	"github.com/jvmstack/jvmstack/core/vm"
)

var (
	traceCommand = &cli.Command{
		Name:      "trace",
		Usage:     "Show the operand stack after every instruction",
		ArgsUsage: "<listing.yaml>",
		Flags:     append([]cli.Flag{methodFlag}, commonFlags...),
		Action:    trace,
		Description: `
The trace command replays each method of a listing and prints a table with the
stack contents after every instruction. Simulation stops at the first failing
instruction of a method.`,
	}
	checkCommand = &cli.Command{
		Name:      "check",
		Usage:     "Simulate every method of one or more listings",
		ArgsUsage: "<listing.yaml> [<listing.yaml>...]",
		Flags:     commonFlags,
		Action:    check,
		Description: `
The check command analyses all methods concurrently and prints a summary. It
fails if any method could not be simulated.`,
	}
	dumpConfigCommand = &cli.Command{
		Name:        "dumpconfig",
		Usage:       "Show configuration values",
		Flags:       commonFlags,
		Action:      dumpConfig,
		Description: `The dumpconfig command shows configuration values.`,
	}
)

func newApp() *cli.App {
	return &cli.App{
		Name:     "stackdump",
		Usage:    "JVM operand stack simulator",
		Commands: []*cli.Command{traceCommand, checkCommand, dumpConfigCommand},
	}
}

func main() {
	// Size the worker pools to the container's CPU quota.
	undo, _ := maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
		log.Debug(fmt.Sprintf(format, args...))
	}))
	defer undo()

	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// prepare loads the configuration and installs the logger.
func prepare(ctx *cli.Context) (stackdumpConfig, error) {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return cfg, err
	}
	setupLogging(&cfg)
	return cfg, nil
}

func trace(ctx *cli.Context) error {
	if ctx.Args().Len() != 1 {
		return errors.New("trace needs exactly one listing")
	}
	cfg, err := prepare(ctx)
	if err != nil {
		return err
	}
	class, err := asm.ParseFile(ctx.Args().First())
	if err != nil {
		return err
	}
	only := ctx.String(methodFlag.Name)

	traced := 0
	for _, m := range class.Methods {
		if only != "" && m.Name != only {
			continue
		}
		if !m.HasCode() {
			log.Info("Skipping method without code", "method", m)
			continue
		}
		traced++
		if err := traceMethod(ctx, cfg.engine(), m); err != nil {
			log.Error("Simulation failed", "method", m, "err", err)
		}
	}
	if traced == 0 && only != "" {
		return errors.Errorf("no method %q with code in %s", only, class.Name)
	}
	return nil
}

func traceMethod(ctx *cli.Context, cfg vm.Config, m *asm.Method) error {
	table := tablewriter.NewWriter(ctx.App.Writer)
	table.SetHeader([]string{"#", "Instruction", "Depth", "Stack"})
	table.SetAutoWrapText(false)
	table.SetCaption(true, m.String())

	cfg.Tracer = &vm.Hooks{
		OnOpcode: func(index int, ins vm.Instruction, stack vm.StackView) {
			table.Append([]string{strconv.Itoa(index), ins.String(), strconv.Itoa(stack.Len()), formatStack(stack)})
		},
		OnFault: func(index int, ins vm.Instruction, stack vm.StackView, err error) {
			table.Append([]string{strconv.Itoa(index), ins.String(), "!", err.Error()})
		},
		OnCodeEnd: func(_ vm.MethodInfo, _ vm.StackView, ret *types.Value) {
			if ret != nil {
				table.Append([]string{"", "returns", "", ret.String()})
			}
		},
	}
	err := m.Accept(vm.NewEngine(cfg, nil))
	table.Render()
	return err
}

func formatStack(stack vm.StackView) string {
	data := stack.Data()
	parts := make([]string, len(data))
	for i, v := range data {
		parts[i] = v.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func check(ctx *cli.Context) error {
	if ctx.Args().Len() == 0 {
		return errors.New("check needs at least one listing")
	}
	cfg, err := prepare(ctx)
	if err != nil {
		return err
	}
	classes, err := parseListings(ctx.Args().Slice())
	if err != nil {
		return err
	}
	var sources []analysis.Source
	for _, class := range classes {
		for _, m := range class.Methods {
			sources = append(sources, m)
		}
	}
	results, err := analysis.New(cfg.analyzer()).Run(ctx.Context, sources)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(ctx.App.Writer)
	table.SetHeader([]string{"Method", "Insns", "Max depth", "Final depth", "Returns", "Status"})
	table.SetAutoWrapText(false)
	failed := 0
	for _, r := range results {
		ret, status := "-", color.GreenString("ok")
		if r.Return != nil {
			ret = r.Return.String()
		}
		if r.Failed() {
			failed++
			status = color.RedString("FAIL")
			log.Error("Simulation failed", "err", r.Err)
		}
		table.Append([]string{r.Method, strconv.Itoa(r.Instructions), strconv.Itoa(r.MaxDepth), strconv.Itoa(r.FinalDepth), ret, status})
	}
	table.Render()

	if failed > 0 {
		return errors.Errorf("%d of %d methods failed", failed, len(results))
	}
	return nil
}

// parseListings reads the listings concurrently, keeping argument order.
func parseListings(paths []string) ([]*asm.Class, error) {
	classes := make([]*asm.Class, len(paths))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			class, err := asm.ParseFile(path)
			classes[i] = class
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return classes, nil
}
