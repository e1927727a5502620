// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"os/exec"

	altsrc "github.com/urfave/cli-altsrc/v3"
	yaml "github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"

	"github.com/staranto/catinfo/internal/config"
)

func init() {
	cfg, _ = config.Load("")
}

var (
	cfg config.Type

	schemaFlag *cli.BoolFlag = &cli.BoolFlag{
		Name:        "schema",
		Usage:       "dump the schema",
		HideDefault: true,
	}

	tldrFlag *cli.BoolFlag = &cli.BoolFlag{
		Name:        "tldr",
		Usage:       "show tldr page",
		Hidden:      !pathHas("tldr"),
		HideDefault: true,
	}
)

// NewRootFlags are the flags every command inherits: how to reach the catalog
// and where the disk cache lives.
func NewRootFlags(path string) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "api-key",
			Usage: "catalog API key",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("CATINFO_API_KEY"),
				yaml.YAML("api.key", altsrc.StringSourcer(path)),
			),
		},
		&cli.StringFlag{
			Name:  "api-url",
			Usage: "catalog base URL",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("CATINFO_API_URL"),
				yaml.YAML("api.url", altsrc.StringSourcer(path)),
			),
			Validator: func(value string) error {
				return FlagValidators(value, URLValidator)
			},
		},
		&cli.StringFlag{
			Name:  "cache-dir",
			Usage: "directory holding the image cache database",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("CATINFO_CACHE_DIR"),
				yaml.YAML("cache.dir", altsrc.StringSourcer(path)),
			),
		},
		&cli.BoolFlag{
			Name:        "no-cache",
			Usage:       "keep images in memory only",
			HideDefault: true,
		},
	}
}

// NewGlobalFlags are the output flags of every listing command. Defaults for
// color, output, sort and titles come from the config file, first under the
// command's namespace and then at the top level (sort is per command only).
func NewGlobalFlags(ns string) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "attrs",
			Aliases: []string{"a"},
			Usage:   "comma-separated list of attributes to include in results",
		},
		&cli.BoolWithInverseFlag{
			Name:    "color",
			Aliases: []string{"c"},
			Usage:   "enable colored text output",
			Sources: configChain(cfg.Source, ns+".color", "color"),
		},
		&cli.StringFlag{
			Name:    "filter",
			Aliases: []string{"f"},
			Usage:   "comma-separated list of filters to apply to results",
		},
		&cli.BoolFlag{
			Name:        "local",
			Usage:       "show timestamps in the local timezone",
			HideDefault: true,
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format: text, json, yaml or raw",
			Sources: configChain(cfg.Source, ns+".output", "output"),
			Value:   "text",
			Validator: func(value string) error {
				return FlagValidators(value, OutputValidator)
			},
		},
		&cli.StringFlag{
			Name:    "sort",
			Aliases: []string{"s"},
			Usage:   "comma-separated list of attributes to sort the results by",
			Sources: configChain(cfg.Source, ns+".sort"),
		},
		&cli.BoolWithInverseFlag{
			Name:    "titles",
			Aliases: []string{"t"},
			Usage:   "show titles with text output",
			Sources: configChain(cfg.Source, ns+".titles", "titles"),
		},
	}
}

// configChain reads a flag default from the first of keys set in the config
// file at path.
func configChain(path string, keys ...string) cli.ValueSourceChain {
	chain := cli.NewValueSourceChain()
	for _, key := range keys {
		chain.Chain = append(chain.Chain, yaml.YAML(key, altsrc.StringSourcer(path)))
	}
	return chain
}

// NewPageFlags are the paging flags for image listings, namespaced to the
// command in the config file.
func NewPageFlags(ns string, path string) []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "limit",
			Aliases: []string{"l"},
			Usage:   "images per page",
			Value:   10,
			Sources: configChain(path, ns+".limit"),
			Validator: func(value int) error {
				return FlagValidators(value, PositiveIntValidator)
			},
		},
		&cli.IntFlag{
			Name:    "page",
			Aliases: []string{"p"},
			Usage:   "first page to fetch, counting from 0",
			Validator: func(value int) error {
				return FlagValidators(value, NonNegativeIntValidator)
			},
		},
		&cli.IntFlag{
			Name:  "pages",
			Usage: "number of pages to fetch",
			Value: 1,
			Validator: func(value int) error {
				return FlagValidators(value, PositiveIntValidator)
			},
		},
	}
}

// NewBreedFlag is the --breed flag, read from CATINFO_BREED and then from the
// config file under ns.breed or breed.
func NewBreedFlag(ns, path string) *cli.StringFlag {
	sources := configChain(path, ns+".breed", "breed")
	sources.Chain = append([]cli.ValueSource{cli.EnvVar("CATINFO_BREED")}, sources.Chain...)

	return &cli.StringFlag{
		Name:    "breed",
		Aliases: []string{"b"},
		Usage:   "breed id, e.g. abys. An argument takes precedence",
		Sources: sources,
		Validator: func(value string) error {
			return FlagValidators(value, JammedFlagValidator, BreedIDValidator)
		},
	}
}

// pathHas reports whether target is an executable on PATH.
func pathHas(target string) bool {
	_, err := exec.LookPath(target)
	return err == nil
}
