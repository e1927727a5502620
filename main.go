// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/apex/log"

	"github.com/staranto/catinfo/internal/cacheutil"
	"github.com/staranto/catinfo/internal/command"
	"github.com/staranto/catinfo/internal/config"
	mylog "github.com/staranto/catinfo/internal/log"
	"github.com/staranto/catinfo/internal/version"
)

func main() {
	os.Exit(realMain())
}

func realMain() int {
	mylog.InitLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	args := os.Args

	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "No command specified.")
		args = append(args, "--help")
	} else {
		args = mangleArguments(args)
	}

	// Short-circuit --version/-v.
	for _, a := range args {
		if a == "--version" || a == "-v" {
			fmt.Println(version.Version)
			return 0
		}
	}

	// Best-effort: pre-create cache directory when caching is enabled.
	if _, ok, err := cacheutil.EnsureBaseDir(); err != nil && !ok {
		// Non-fatal: the image cache falls back to memory only.
		log.WithError(err).Warn("cache directory unavailable")
	}

	app, err := command.InitApp(ctx, args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if err := app.Run(ctx, args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	return 0
}

// mangleArguments expands an @set (or the implicit @defaults) into the
// argument list. Sets are string lists in the config file under
// <command>.<set>, or <command>.<subcommand>.<set> for command groups, and are
// inserted right after the command so explicit arguments win.
func mangleArguments(args []string) []string {
	// Short-circuit for --help/-h. If help is requested, keep everything up to
	// the command and add --help.
	for _, a := range args {
		if a == "--help" || a == "-h" {
			end := 2
			if len(args) > 2 && isGroup(args[1]) && !strings.HasPrefix(args[2], "-") {
				end = 3
			}
			out := append([]string{}, args[:end]...)
			return append(out, "--help")
		}
	}

	// Root flags before the command leave nothing to namespace.
	if strings.HasPrefix(args[1], "-") {
		return args
	}

	idx := 2
	ns := args[1]
	if isGroup(args[1]) && len(args) > 2 && !strings.HasPrefix(args[2], "-") {
		ns += "." + args[2]
		idx = 3
	}

	out := append([]string{}, args[:idx]...)
	rest := []string{}
	set := "defaults"

	// See if there is a @set specified. If so, it replaces @defaults and the
	// @set entry is removed from args.
	for _, a := range args[idx:] {
		if strings.HasPrefix(a, "@") && len(a) > 1 && set == "defaults" {
			set = a[1:]
			continue
		}
		rest = append(rest, a)
	}

	setArgs, _ := config.GetStringSlice(ns + "." + set)
	for _, arg := range setArgs {
		out = append(out, strings.Fields(arg)...)
	}
	out = append(out, rest...)

	log.Debugf("ns=%s, set=%s, args=%v", ns, set, out)
	return out
}

// isGroup reports whether name is a command with subcommands.
func isGroup(name string) bool {
	return name == "cache"
}
