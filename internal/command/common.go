// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"reflect"

	"github.com/apex/log"
	"github.com/hashicorp/jsonapi"
	"github.com/urfave/cli/v3"

	"github.com/staranto/catinfo/internal/attrs"
	"github.com/staranto/catinfo/internal/cacheutil"
	"github.com/staranto/catinfo/internal/meta"
	"github.com/staranto/catinfo/internal/output"
	"github.com/staranto/catinfo/internal/services"
)

// stdout is where command results go. Tests swap it for a buffer.
var stdout io.Writer = os.Stdout

// ShortCircuitTLDR reports whether --tldr was given. When it was, the tldr
// page for catinfo-<subcmd> is shown if a tldr client is installed.
func ShortCircuitTLDR(ctx context.Context, cmd *cli.Command, subcmd string) bool {
	if !cmd.Bool("tldr") {
		return false
	}
	if _, err := exec.LookPath("tldr"); err != nil {
		log.Debug("no tldr client on PATH")
		return true
	}
	c := exec.CommandContext(ctx, "tldr", "catinfo", subcmd)
	c.Stdout, c.Stderr = stdout, os.Stderr
	if err := c.Run(); err != nil {
		log.WithError(err).Debug("tldr failed")
	}
	return true
}

// DumpSchemaIfRequested writes the attribute names of t and reports true when
// --schema was given.
func DumpSchemaIfRequested(cmd *cli.Command, t reflect.Type) bool {
	if !cmd.Bool("schema") {
		return false
	}
	output.DumpSchema(stdout, "", t)
	return true
}

// BuildAttrs parses the command's default attrs followed by any --attrs
// value, then applies a "*" transform to every entry.
func BuildAttrs(cmd *cli.Command, defaults ...string) attrs.AttrList {
	var al attrs.AttrList
	specs := defaults
	if extras := cmd.String("attrs"); extras != "" {
		specs = append(specs[:len(specs):len(specs)], extras)
	}
	for _, spec := range specs {
		if err := al.Set(spec); err != nil {
			log.WithError(err).Warnf("ignoring attrs %q", spec)
		}
	}
	_ = al.SetGlobalTransformSpec()
	return al
}

// EmitJSONAPISlice encodes results as a jsonapi document and hands it to the
// output pipeline.
func EmitJSONAPISlice(results any, al attrs.AttrList, cmd *cli.Command) error {
	var doc bytes.Buffer
	if err := jsonapi.MarshalPayload(&doc, results); err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	output.SliceDiceSpit(doc, al, cmd, "data", stdout)
	return nil
}

// GetMeta returns the meta.Meta a builder attached to cmd, or the zero value.
func GetMeta(cmd *cli.Command) meta.Meta {
	var m meta.Meta
	if cmd != nil {
		m, _ = cmd.Metadata["meta"].(meta.Meta)
	}
	return m
}

// Settings resolves service settings from the config file and then lets the
// root flags override them.
func Settings(cmd *cli.Command) services.Settings {
	s := services.SettingsFromConfig()

	if v := cmd.String("api-key"); v != "" {
		s.APIKey = v
	}
	if v := cmd.String("api-url"); v != "" {
		s.APIURL = v
	}
	if v := cmd.String("cache-dir"); v != "" {
		s.CacheDir = v
	}
	if cmd.Bool("no-cache") || !cacheutil.Enabled() {
		s.NoCache = true
	}

	return s
}

// WithGraph builds the service graph for the duration of fn and closes it
// afterwards, flushing pending disk writes.
func WithGraph(ctx context.Context, cmd *cli.Command, fn func(*services.Graph) error) error {
	g, err := services.Build(ctx, Settings(cmd))
	if err != nil {
		return err
	}
	defer func() {
		if err := g.Close(); err != nil {
			log.WithError(err).Warn("failed to close image cache")
		}
	}()
	return fn(g)
}

// breedArg returns the breed id from the first argument, falling back to
// --breed.
func breedArg(cmd *cli.Command) (string, error) {
	id := cmd.Args().First()
	if id == "" {
		id = cmd.String("breed")
	}
	if id == "" {
		return "", fmt.Errorf("a breed id is required, as an argument or with --breed")
	}
	if err := BreedIDValidator(id); err != nil {
		return "", err
	}
	return id, nil
}

// QueryCommandBuilder describes a command that prints records through the
// output pipeline. Build adds the --tldr, --schema and output flags along with
// their validation.
type QueryCommandBuilder struct {
	Name      string
	Aliases   []string
	Usage     string
	UsageText string
	ArgsUsage string
	Flags     []cli.Flag
	Action    func(context.Context, *cli.Command) error
	Meta      meta.Meta
}

// Build returns the cli.Command.
func (qcb *QueryCommandBuilder) Build() *cli.Command {
	flags := make([]cli.Flag, 0, len(qcb.Flags)+12)
	flags = append(flags, qcb.Flags...)
	flags = append(flags, tldrFlag, schemaFlag)
	flags = append(flags, NewGlobalFlags(qcb.Name)...)

	return &cli.Command{
		Name:      qcb.Name,
		Aliases:   qcb.Aliases,
		Usage:     qcb.Usage,
		UsageText: qcb.UsageText,
		ArgsUsage: qcb.ArgsUsage,
		Metadata:  map[string]any{"meta": qcb.Meta},
		Flags:     flags,
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			return ctx, GlobalFlagsValidator(ctx, c)
		},
		Action: qcb.Action,
	}
}

// QueryActionRunner is the action shared by the listing commands. FetchFn
// supplies the records; everything else is common.
type QueryActionRunner[T any] struct {
	CommandName  string
	SchemaType   reflect.Type
	DefaultAttrs []string
	FetchFn      func(context.Context, *cli.Command) ([]T, error)
}

// Run handles --tldr and --schema, fetches, and prints.
func (qar *QueryActionRunner[T]) Run(ctx context.Context, cmd *cli.Command) error {
	if args := GetMeta(cmd).Args; len(args) > 1 {
		log.Debugf("running %s for %v", qar.CommandName, args[1:])
	}

	if ShortCircuitTLDR(ctx, cmd, qar.CommandName) || DumpSchemaIfRequested(cmd, qar.SchemaType) {
		return nil
	}

	al := BuildAttrs(cmd, qar.DefaultAttrs...)
	log.Debugf("attrs: %v", al)

	results, err := qar.FetchFn(ctx, cmd)
	if err != nil {
		return err
	}
	return EmitJSONAPISlice(results, al, cmd)
}
