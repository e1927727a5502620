// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"reflect"

	"github.com/urfave/cli/v3"

	"github.com/staranto/catinfo/internal/apperr"
	"github.com/staranto/catinfo/internal/catapi"
	"github.com/staranto/catinfo/internal/meta"
	"github.com/staranto/catinfo/internal/services"
)

// BreedsCommandAction is the action handler for the "breeds" subcommand. It
// lists every breed in the catalog, supporting short-circuit behavior for
// --tldr and --schema, and emits results according to common output/attr
// flags.
func BreedsCommandAction(ctx context.Context, cmd *cli.Command) error {
	runner := &QueryActionRunner[*catapi.Breed]{
		CommandName:  "breeds",
		SchemaType:   reflect.TypeOf(catapi.Breed{}),
		DefaultAttrs: []string{".id", "name", "origin", "life_span"},
		FetchFn: func(ctx context.Context, cmd *cli.Command) ([]*catapi.Breed, error) {
			client, err := services.NewCatalog(ctx, Settings(cmd))
			if err != nil {
				return nil, err
			}
			breeds, err := client.Breeds(ctx)
			if err != nil {
				return nil, apperr.Friendly(err, apperr.Context{
					Operation: "list breeds",
					Resource:  "breed list",
				})
			}
			return breeds, nil
		},
	}
	return runner.Run(ctx, cmd)
}

// BreedsCommandBuilder constructs the cli.Command definition for the "breeds"
// command.
func BreedsCommandBuilder(_ *cli.Command, meta meta.Meta) *cli.Command {
	return (&QueryCommandBuilder{
		Name:      "breeds",
		Aliases:   []string{"bq"},
		Usage:     "breed catalog query",
		UsageText: `catinfo breeds [options]`,
		Action:    BreedsCommandAction,
		Meta:      meta,
	}).Build()
}
