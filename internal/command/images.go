// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"os"
	"reflect"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/staranto/catinfo/internal/apperr"
	"github.com/staranto/catinfo/internal/browse"
	"github.com/staranto/catinfo/internal/catapi"
	"github.com/staranto/catinfo/internal/meta"
	"github.com/staranto/catinfo/internal/services"
)

// interactive reports whether stdout is a terminal the carousel can take over.
var interactive = func() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// ImagesCommandAction is the action handler for the "images" subcommand. On a
// terminal it opens the image carousel for the breed; otherwise, or with
// --list, it prints pages of search results.
func ImagesCommandAction(ctx context.Context, cmd *cli.Command) error {
	if ShortCircuitTLDR(ctx, cmd, "images") {
		return nil
	}
	if DumpSchemaIfRequested(cmd, reflect.TypeOf(catapi.Image{})) {
		return nil
	}

	breedID, err := breedArg(cmd)
	if err != nil {
		return err
	}

	if !cmd.Bool("list") && cmd.String("output") == "text" && interactive() {
		return WithGraph(ctx, cmd, func(g *services.Graph) error {
			return browse.Run(ctx, g.Catalog, g.Loader, breedID, carouselTitle(ctx, g.Catalog, breedID))
		})
	}

	runner := &QueryActionRunner[*catapi.Image]{
		CommandName:  "images",
		SchemaType:   reflect.TypeOf(catapi.Image{}),
		DefaultAttrs: []string{".id", "url", "width", "height"},
		FetchFn: func(ctx context.Context, cmd *cli.Command) ([]*catapi.Image, error) {
			client, err := services.NewCatalog(ctx, Settings(cmd))
			if err != nil {
				return nil, err
			}
			return searchPages(ctx, client, breedID,
				int(cmd.Int("limit")), int(cmd.Int("page")), int(cmd.Int("pages")))
		},
	}
	return runner.Run(ctx, cmd)
}

// searchPages collects up to pages pages of results starting at first. A
// short page ends the walk early.
func searchPages(ctx context.Context, s browse.Searcher, breedID string, limit, first, pages int) ([]*catapi.Image, error) {
	var results []*catapi.Image
	for page := first; page < first+pages; page++ {
		items, err := s.SearchImages(ctx, breedID, limit, page)
		if err != nil {
			return nil, apperr.Friendly(err, apperr.Context{
				Operation: "search images",
				Resource:  "breed",
				ID:        breedID,
			})
		}
		results = append(results, items...)
		if len(items) < limit {
			break
		}
	}
	log.Debugf("collected %d images for %q", len(results), breedID)
	return results, nil
}

// carouselTitle names the breed for the carousel header, falling back to the
// id when the catalog cannot be asked.
func carouselTitle(ctx context.Context, client *catapi.Client, breedID string) string {
	b, err := client.Breed(ctx, breedID)
	if err != nil {
		log.WithError(err).Debug("failed to fetch breed name")
		return breedID
	}
	return b.Name
}

// ImagesCommandBuilder constructs the cli.Command definition for the "images"
// command.
func ImagesCommandBuilder(_ *cli.Command, meta meta.Meta) *cli.Command {
	flags := append([]cli.Flag{
		NewBreedFlag("images", meta.Config.Source),
		&cli.BoolFlag{
			Name:        "list",
			Usage:       "print results instead of opening the carousel",
			HideDefault: true,
		},
	}, NewPageFlags("images", meta.Config.Source)...)

	return (&QueryCommandBuilder{
		Name:      "images",
		Usage:     "browse or list breed pictures",
		UsageText: `catinfo images <breed-id> [options]`,
		ArgsUsage: "<breed-id>",
		Flags:     flags,
		Action:    ImagesCommandAction,
		Meta:      meta,
	}).Build()
}
