// terramesh is a CLI utility for working with quantized terrain tiles.
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/geodeck/terramesh/internal/config"
	"github.com/geodeck/terramesh/internal/logger"
	"github.com/geodeck/terramesh/internal/scheduler"
	"github.com/geodeck/terramesh/internal/terrain"
	"github.com/geodeck/terramesh/pkg/geodetic"
	"github.com/geodeck/terramesh/pkg/quantized"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "info":
		cmdInfo(args)
	case "mesh":
		cmdMesh(args)
	case "sample":
		cmdSample(args)
	case "upsample":
		cmdUpsample(args)
	case "config":
		cmdConfig(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`terramesh - quantized terrain tile utility

Usage:
  terramesh <command> [options]

Commands:
  info <tile.terrain>                      Show tile information
  mesh <tile.terrain> -x -y -level         Build the tile's mesh and report stats
  sample <tile.terrain> -x -y -level -lon -lat
                                           Query the height at a point (degrees)
  upsample <tile.terrain> -x -y -level -cx -cy [-o out.terrain]
                                           Synthesize a child tile from the parent
  config [-o path]                         Write a default config file

Examples:
  terramesh info 9/512/383.terrain
  terramesh mesh 9/512/383.terrain -x 512 -y 383 -level 9
  terramesh sample 9/512/383.terrain -x 512 -y 383 -level 9 -lon 6.8 -lat 45.8
  terramesh upsample 9/512/383.terrain -x 512 -y 383 -level 9 -cx 1024 -cy 766`)
}

func cmdConfig(args []string) {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	out := fs.String("o", "", "Write to this path instead of the user config directory")
	fs.Parse(args)

	cfg := config.Default()
	path := *out
	var err error
	if path == "" {
		path = filepath.Join(config.ConfigDir(), "config.yaml")
		err = cfg.Save()
	} else {
		err = cfg.SaveTo(path)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s\n", path)
}

// setup loads configuration and builds the shared logger, pool and tiling
// scheme.
func setup() (*config.Config, *zap.Logger, *scheduler.Pool, geodetic.TilingScheme) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}

	pool := scheduler.NewPool(cfg.Pool.Workers, log)

	var scheme geodetic.TilingScheme
	switch cfg.Terrain.TilingScheme {
	case "", "geographic":
		scheme = geodetic.NewGeographic()
	case "web-mercator":
		scheme = geodetic.NewWebMercator()
	default:
		fmt.Fprintf(os.Stderr, "Unknown tiling scheme: %s\n", cfg.Terrain.TilingScheme)
		os.Exit(1)
	}

	return cfg, log, pool, scheme
}

// loadTile parses a tile file and wraps it with skirt heights derived from
// the level's maximum geometric error.
func loadTile(path string, level int, scheme geodetic.TilingScheme) *terrain.Tile {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	payload, err := quantized.Parse(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing %s: %v\n", path, err)
		os.Exit(1)
	}

	skirt := scheme.LevelMaximumGeometricError(level) * 5
	payload.WestSkirtHeight = skirt
	payload.SouthSkirtHeight = skirt
	payload.EastSkirtHeight = skirt
	payload.NorthSkirtHeight = skirt

	tile, err := terrain.NewTile(payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return tile
}

func cmdInfo(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: terramesh info <tile.terrain>")
		os.Exit(1)
	}

	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	p, err := quantized.Parse(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing %s: %v\n", fs.Arg(0), err)
		os.Exit(1)
	}

	fmt.Printf("Tile:      %s\n", fs.Arg(0))
	fmt.Printf("Vertices:  %d\n", p.VertexCount())
	fmt.Printf("Triangles: %d\n", len(p.Indices)/3)
	fmt.Printf("Heights:   %.2f .. %.2f m\n", p.MinHeight, p.MaxHeight)
	fmt.Printf("Edges:     W %d, S %d, E %d, N %d\n",
		len(p.WestIndices), len(p.SouthIndices), len(p.EastIndices), len(p.NorthIndices))
	fmt.Printf("Sphere:    center (%.1f, %.1f, %.1f), radius %.1f\n",
		p.BoundingSphere.Center.X(), p.BoundingSphere.Center.Y(), p.BoundingSphere.Center.Z(),
		p.BoundingSphere.Radius)

	fmt.Print("Children:  ")
	names := []struct {
		bit  uint8
		name string
	}{
		{quantized.ChildSouthwest, "SW"},
		{quantized.ChildSoutheast, "SE"},
		{quantized.ChildNorthwest, "NW"},
		{quantized.ChildNortheast, "NE"},
	}
	listed := false
	for _, c := range names {
		if p.ChildMask&c.bit != 0 {
			if listed {
				fmt.Print(" ")
			}
			fmt.Print(c.name)
			listed = true
		}
	}
	if !listed {
		fmt.Print("none")
	}
	fmt.Println()
}

func cmdMesh(args []string) {
	fs := flag.NewFlagSet("mesh", flag.ExitOnError)
	x := fs.Int("x", 0, "Tile x")
	y := fs.Int("y", 0, "Tile y")
	level := fs.Int("level", 0, "Tile level")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: terramesh mesh <tile.terrain> -x -y -level")
		os.Exit(1)
	}

	cfg, log, pool, scheme := setup()
	defer log.Sync()
	defer pool.Close()

	tile := loadTile(fs.Arg(0), *level, scheme)

	builder := terrain.NewMeshBuilder(pool, log)
	fut, ok := builder.CreateMesh(tile, terrain.MeshParams{
		X: *x, Y: *y, Level: *level,
		Rectangle:                  scheme.TileRectangle(*x, *y, *level),
		Exaggeration:               cfg.Terrain.Exaggeration,
		ExaggerationRelativeHeight: cfg.Terrain.ExaggerationRelativeHeight,
		Unthrottled:                true,
	})
	if !ok {
		fmt.Fprintln(os.Stderr, "Mesh task rejected")
		os.Exit(1)
	}
	if _, err := fut.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "Error meshing tile: %v\n", err)
		os.Exit(1)
	}

	m := tile.Mesh()
	fmt.Printf("Vertices:   %d (%d core, %d skirt)\n",
		m.VertexCount(), m.CoreVertexCount, m.VertexCount()-m.CoreVertexCount)
	fmt.Printf("Triangles:  %d (%d core)\n", m.IndexCount()/3, m.CoreIndexCount/3)
	fmt.Printf("Index size: %d bytes\n", m.IndexBytes)
	fmt.Printf("Heights:    %.2f .. %.2f m\n", m.MinHeight, m.MaxHeight)
	fmt.Printf("Sphere:     center (%.1f, %.1f, %.1f), radius %.1f\n",
		m.BoundingSphere.Center.X(), m.BoundingSphere.Center.Y(), m.BoundingSphere.Center.Z(),
		m.BoundingSphere.Radius)
}

func cmdSample(args []string) {
	fs := flag.NewFlagSet("sample", flag.ExitOnError)
	x := fs.Int("x", 0, "Tile x")
	y := fs.Int("y", 0, "Tile y")
	level := fs.Int("level", 0, "Tile level")
	lon := fs.Float64("lon", 0, "Longitude in degrees")
	lat := fs.Float64("lat", 0, "Latitude in degrees")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: terramesh sample <tile.terrain> -x -y -level -lon -lat")
		os.Exit(1)
	}

	_, log, pool, scheme := setup()
	defer log.Sync()
	defer pool.Close()

	tile := loadTile(fs.Arg(0), *level, scheme)
	rect := scheme.TileRectangle(*x, *y, *level)

	h, ok := tile.InterpolateHeight(rect, *lon*math.Pi/180, *lat*math.Pi/180)
	if !ok {
		fmt.Fprintln(os.Stderr, "No triangle covers that point")
		os.Exit(1)
	}
	fmt.Printf("%.3f m\n", h)
}

func cmdUpsample(args []string) {
	fs := flag.NewFlagSet("upsample", flag.ExitOnError)
	x := fs.Int("x", 0, "Parent tile x")
	y := fs.Int("y", 0, "Parent tile y")
	level := fs.Int("level", 0, "Parent tile level")
	cx := fs.Int("cx", 0, "Child tile x")
	cy := fs.Int("cy", 0, "Child tile y")
	out := fs.String("o", "", "Output path for the child tile")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: terramesh upsample <tile.terrain> -x -y -level -cx -cy [-o out.terrain]")
		os.Exit(1)
	}

	cfg, log, pool, scheme := setup()
	defer log.Sync()
	defer pool.Close()

	parent := loadTile(fs.Arg(0), *level, scheme)

	// The parent must be meshed before it can be subdivided.
	builder := terrain.NewMeshBuilder(pool, log)
	fut, ok := builder.CreateMesh(parent, terrain.MeshParams{
		X: *x, Y: *y, Level: *level,
		Rectangle:                  scheme.TileRectangle(*x, *y, *level),
		Exaggeration:               cfg.Terrain.Exaggeration,
		ExaggerationRelativeHeight: cfg.Terrain.ExaggerationRelativeHeight,
		Unthrottled:                true,
	})
	if !ok {
		fmt.Fprintln(os.Stderr, "Mesh task rejected")
		os.Exit(1)
	}
	if _, err := fut.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "Error meshing parent: %v\n", err)
		os.Exit(1)
	}

	upsampler := terrain.NewUpsampler(pool, scheme, log)
	fut, ok, err := upsampler.Upsample(parent, *x, *y, *level, *cx, *cy, *level+1)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if !ok {
		fmt.Fprintln(os.Stderr, "Upsample task rejected")
		os.Exit(1)
	}
	v, err := fut.Wait()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error upsampling: %v\n", err)
		os.Exit(1)
	}
	child := v.(*terrain.Tile)

	p := child.Payload()
	fmt.Printf("Child %d/%d/%d: %d vertices, %d triangles, heights %.2f .. %.2f m\n",
		*level+1, *cx, *cy, p.VertexCount(), len(p.Indices)/3, p.MinHeight, p.MaxHeight)

	if *out != "" {
		data, err := quantized.Encode(p)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding child: %v\n", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*out, data, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", *out, err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %s (%d bytes)\n", *out, len(data))
	}
}
