// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/apex/log"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/staranto/catinfo/internal/apperr"
	"github.com/staranto/catinfo/internal/browse"
	"github.com/staranto/catinfo/internal/catapi"
	"github.com/staranto/catinfo/internal/meta"
	"github.com/staranto/catinfo/internal/services"
)

const (
	msgImageUnavailable = "Image unavailable"
	msgImageFailed      = "Failed to load image"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	labelStyle = lipgloss.NewStyle().Faint(true)

	// termSize reports the terminal size used to fit the preview.
	termSize = func() (int, int) {
		w, h, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || w <= 0 {
			return 80, 24
		}
		return w, h
	}
)

// BreedCommandAction is the action handler for the "breed" subcommand. It
// shows one breed and, unless --no-image is set, a preview of its reference
// image loaded through the image cache.
func BreedCommandAction(ctx context.Context, cmd *cli.Command) error {
	if ShortCircuitTLDR(ctx, cmd, "breed") {
		return nil
	}
	if DumpSchemaIfRequested(cmd, reflect.TypeOf(catapi.Breed{})) {
		return nil
	}

	id, err := breedArg(cmd)
	if err != nil {
		return err
	}

	if cmd.String("output") != "text" {
		client, err := services.NewCatalog(ctx, Settings(cmd))
		if err != nil {
			return err
		}
		b, err := fetchBreed(ctx, client, id)
		if err != nil {
			return err
		}
		al := BuildAttrs(cmd, ".id", "name", "origin", "temperament", "weight.metric",
			"life_span", "wikipedia_url", "reference_image_id")
		return EmitJSONAPISlice([]*catapi.Breed{b}, al, cmd)
	}

	return WithGraph(ctx, cmd, func(g *services.Graph) error {
		b, err := fetchBreed(ctx, g.Catalog, id)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, formatBreed(b))

		if cmd.Bool("no-image") {
			return nil
		}
		return showBreedImage(ctx, cmd, g, b)
	})
}

func fetchBreed(ctx context.Context, client *catapi.Client, id string) (*catapi.Breed, error) {
	b, err := client.Breed(ctx, id)
	if err != nil {
		return nil, apperr.Friendly(err, apperr.Context{
			Operation: "show breed",
			Resource:  "breed",
			ID:        id,
		})
	}
	return b, nil
}

// showBreedImage prints the reference image preview. Image failures are
// reported inline and never fail the command, except for a failed --save.
func showBreedImage(ctx context.Context, cmd *cli.Command, g *services.Graph, b *catapi.Breed) error {
	imageID := b.ImageID()
	if imageID == "" {
		fmt.Fprintln(stdout, labelStyle.Render(msgImageUnavailable))
		return nil
	}

	res, err := g.Loader.Load(ctx, imageID)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		log.WithError(err).WithField("image", imageID).Warn("failed to load breed image")
		fmt.Fprintln(stdout, labelStyle.Render(fmt.Sprintf("%s: %v", msgImageFailed, err)))
		return nil
	}

	cols, rows := termSize()
	rows -= 10
	if rows < 8 {
		rows = 8
	}
	fmt.Fprint(stdout, browse.Preview(res.Picture.Image, cols, rows))
	fmt.Fprintln(stdout, labelStyle.Render(browse.Describe(res)))

	if path := cmd.String("save"); path != "" {
		if err := os.WriteFile(path, res.Picture.Raw, 0o644); err != nil { //nolint:mnd,gosec
			return fmt.Errorf("failed to save image: %w", err)
		}
		log.Debugf("saved %s to %s", imageID, path)
	}
	return nil
}

// formatBreed renders the detail block for b. Empty fields are left out.
func formatBreed(b *catapi.Breed) string {
	var lines []string
	lines = append(lines, titleStyle.Render(b.Name))

	add := func(label, value string) {
		if value == "" {
			return
		}
		lines = append(lines, labelStyle.Render(label+":")+" "+value)
	}

	add("Origin", b.Origin)
	add("Temperament", b.Temperament)
	if b.Weight != nil && b.Weight.Metric != "" {
		add("Weight", b.Weight.Metric+" kg")
	}
	if b.LifeSpan != "" {
		add("Life Span", b.LifeSpan+" years")
	}
	if b.Description != "" {
		lines = append(lines, "", b.Description)
	}
	if b.WikipediaURL != "" {
		lines = append(lines, "", b.WikipediaURL)
	}

	return strings.Join(lines, "\n")
}

// BreedCommandBuilder constructs the cli.Command definition for the "breed"
// command.
func BreedCommandBuilder(_ *cli.Command, meta meta.Meta) *cli.Command {
	return (&QueryCommandBuilder{
		Name:      "breed",
		Usage:     "show one breed and its picture",
		UsageText: `catinfo breed <breed-id> [options]`,
		ArgsUsage: "<breed-id>",
		Flags: []cli.Flag{
			NewBreedFlag("breed", meta.Config.Source),
			&cli.BoolFlag{
				Name:        "no-image",
				Usage:       "skip the picture",
				HideDefault: true,
			},
			&cli.StringFlag{
				Name:  "save",
				Usage: "write the picture to this file",
				Validator: func(value string) error {
					return FlagValidators(value, JammedFlagValidator)
				},
			},
		},
		Action: BreedCommandAction,
		Meta:   meta,
	}).Build()
}
