// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/staranto/catinfo/internal/cache"
	"github.com/staranto/catinfo/internal/meta"
	"github.com/staranto/catinfo/internal/services"
)

// cacheEntry is a disk row shaped for the output pipeline.
type cacheEntry struct {
	Key            string    `jsonapi:"primary,entries"`
	Size           int64     `jsonapi:"attr,size"`
	CreatedAt      time.Time `jsonapi:"attr,created_at,iso8601"`
	LastAccessedAt time.Time `jsonapi:"attr,last_accessed_at,iso8601"`
}

// cacheSummary is the stats report shaped for the output pipeline.
type cacheSummary struct {
	ID               string    `jsonapi:"primary,cache"`
	MemoryEntries    int       `jsonapi:"attr,memory_entries"`
	MemoryBytes      int64     `jsonapi:"attr,memory_bytes"`
	MemoryMaxEntries int       `jsonapi:"attr,memory_max_entries"`
	MemoryMaxBytes   int64     `jsonapi:"attr,memory_max_bytes"`
	DiskPath         string    `jsonapi:"attr,disk_path,omitempty"`
	DiskEntries      int64     `jsonapi:"attr,disk_entries"`
	DiskBytes        int64     `jsonapi:"attr,disk_bytes"`
	Oldest           time.Time `jsonapi:"attr,oldest,iso8601,omitempty"`
	Newest           time.Time `jsonapi:"attr,newest,iso8601,omitempty"`
	LastSweep        time.Time `jsonapi:"attr,last_sweep,iso8601,omitempty"`
}

// CacheStatsAction reports the size of both cache tiers, or with --entries
// lists the disk rows.
func CacheStatsAction(ctx context.Context, cmd *cli.Command) error {
	if ShortCircuitTLDR(ctx, cmd, "cache") {
		return nil
	}
	if cmd.Bool("entries") {
		if DumpSchemaIfRequested(cmd, reflect.TypeOf(cacheEntry{})) {
			return nil
		}
	} else if DumpSchemaIfRequested(cmd, reflect.TypeOf(cacheSummary{})) {
		return nil
	}

	return WithGraph(ctx, cmd, func(g *services.Graph) error {
		if cmd.Bool("entries") {
			var rows []*cacheEntry
			for _, e := range g.Cache.Entries(ctx) {
				rows = append(rows, &cacheEntry{
					Key:            e.Key,
					Size:           e.Size,
					CreatedAt:      e.CreatedAt,
					LastAccessedAt: e.LastAccessedAt,
				})
			}
			al := BuildAttrs(cmd, ".id", "size:size:b", "created_at", "last_accessed_at")
			return EmitJSONAPISlice(rows, al, cmd)
		}

		st := g.Cache.Stats(ctx)
		if cmd.String("output") == "text" {
			fmt.Fprint(stdout, formatStats(st, time.Now()))
			return nil
		}

		al := BuildAttrs(cmd, ".id", "memory_entries", "memory_bytes", "memory_max_entries",
			"memory_max_bytes", "disk_path", "disk_entries", "disk_bytes", "oldest", "newest", "last_sweep")
		return EmitJSONAPISlice([]*cacheSummary{summarize(st)}, al, cmd)
	})
}

func summarize(st cache.Stats) *cacheSummary {
	return &cacheSummary{
		ID:               "images",
		MemoryEntries:    st.MemoryEntries,
		MemoryBytes:      st.MemoryCost,
		MemoryMaxEntries: st.MemoryMaxEntries,
		MemoryMaxBytes:   st.MemoryMaxCost,
		DiskPath:         st.Disk.Path,
		DiskEntries:      st.Disk.Entries,
		DiskBytes:        st.Disk.Bytes,
		Oldest:           st.Disk.Oldest,
		Newest:           st.Disk.Newest,
		LastSweep:        st.Disk.LastSweep,
	}
}

// formatStats renders the stats report for humans.
func formatStats(st cache.Stats, now time.Time) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Memory: %d of %d entries, %s of %s\n",
		st.MemoryEntries, st.MemoryMaxEntries,
		humanize.IBytes(uint64(st.MemoryCost)), humanize.IBytes(uint64(st.MemoryMaxCost)))

	if !st.DiskOK {
		sb.WriteString("Disk:   disabled\n")
		return sb.String()
	}

	fmt.Fprintf(&sb, "Disk:   %s entries, %s in %s\n",
		humanize.Comma(st.Disk.Entries), humanize.IBytes(uint64(st.Disk.Bytes)), st.Disk.Path)
	if st.Disk.Entries > 0 {
		fmt.Fprintf(&sb, "        oldest used %s, newest used %s\n",
			humanize.RelTime(st.Disk.Oldest, now, "ago", "from now"),
			humanize.RelTime(st.Disk.Newest, now, "ago", "from now"))
	}
	if st.Disk.LastSweep.IsZero() {
		sb.WriteString("        never swept\n")
	} else {
		fmt.Fprintf(&sb, "        last swept %s\n", humanize.RelTime(st.Disk.LastSweep, now, "ago", "from now"))
	}
	return sb.String()
}

// CacheClearAction empties both tiers.
func CacheClearAction(ctx context.Context, cmd *cli.Command) error {
	return WithGraph(ctx, cmd, func(g *services.Graph) error {
		g.Cache.Clear()
		if err := g.Cache.Sync(ctx); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "Image cache cleared")
		return nil
	})
}

// CacheSweepAction expires disk rows that have not been used within the
// configured maximum age.
func CacheSweepAction(ctx context.Context, cmd *cli.Command) error {
	return WithGraph(ctx, cmd, func(g *services.Graph) error {
		if !g.Cache.HasDisk() {
			fmt.Fprintln(stdout, "No disk cache to sweep")
			return nil
		}
		removed, ran := g.Cache.Sweep(ctx)
		if !ran {
			fmt.Fprintln(stdout, "A sweep is already running")
			return nil
		}
		fmt.Fprintf(stdout, "Removed %s expired %s\n",
			humanize.Comma(removed), plural(removed, "entry", "entries"))
		return nil
	})
}

// CacheWarmAction downloads pages of a breed's pictures into the cache.
func CacheWarmAction(ctx context.Context, cmd *cli.Command) error {
	id, err := breedArg(cmd)
	if err != nil {
		return err
	}

	return WithGraph(ctx, cmd, func(g *services.Graph) error {
		images, err := searchPages(ctx, g.Catalog, id,
			int(cmd.Int("limit")), int(cmd.Int("page")), int(cmd.Int("pages")))
		if err != nil {
			return err
		}

		report, err := g.Loader.Warm(ctx, images)
		if err != nil {
			return err
		}
		if err := g.Cache.Sync(ctx); err != nil {
			return err
		}

		fmt.Fprintf(stdout, "Warmed %d %s for %s: %d downloaded, %d cached, %d failed, %d skipped\n",
			len(images), plural(int64(len(images)), "image", "images"), id,
			report.Downloaded, report.Cached, report.Failed, report.Skipped)
		return nil
	})
}

func plural(n int64, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// CacheCommandBuilder constructs the "cache" command and its subcommands.
func CacheCommandBuilder(_ *cli.Command, meta meta.Meta) *cli.Command {
	stats := (&QueryCommandBuilder{
		Name:      "stats",
		Usage:     "show cache usage",
		UsageText: `catinfo cache stats [options]`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "entries",
				Usage:       "list the disk entries",
				HideDefault: true,
			},
		},
		Action: CacheStatsAction,
		Meta:   meta,
	}).Build()

	return &cli.Command{
		Name:      "cache",
		Usage:     "manage the image cache",
		UsageText: `catinfo cache <stats|clear|sweep|warm> [options]`,
		Metadata: map[string]any{
			"meta": meta,
		},
		Commands: []*cli.Command{
			stats,
			{
				Name:   "clear",
				Usage:  "remove every cached image",
				Action: CacheClearAction,
			},
			{
				Name:   "sweep",
				Usage:  "remove images not used recently",
				Action: CacheSweepAction,
			},
			{
				Name:      "warm",
				Usage:     "download a breed's pictures ahead of time",
				UsageText: `catinfo cache warm <breed-id> [options]`,
				ArgsUsage: "<breed-id>",
				Flags: append([]cli.Flag{
					NewBreedFlag("cache", meta.Config.Source),
				}, NewPageFlags("cache.warm", meta.Config.Source)...),
				Action: CacheWarmAction,
			},
		},
	}
}
