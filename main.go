package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"

	"github.com/df07/go-iile/pkg/film"
	"github.com/df07/go-iile/pkg/log"
	"github.com/df07/go-iile/pkg/predictor"
	"github.com/df07/go-iile/pkg/renderer"
	"github.com/df07/go-iile/pkg/scene"
	"github.com/df07/go-iile/web/server"
)

// ErrUnknownFormat is returned for output files with an unsupported extension
var ErrUnknownFormat = errors.New("unsupported output format")

var logger = log.New("iile")

func main() {
	if err := newApp().Run(os.Args); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	defaults := renderer.DefaultConfig()

	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "iile"
	app.Usage = "progressive path tracing with predicted indirect illumination"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "render",
			Usage: "render a built-in scene",
			Description: `
Render direct lighting with a path tracer and indirect lighting from
hemispherical captures at a sparse grid of surface points. Captures are
passed through the predictor command, if one is given, before being
interpolated across each tile.`,
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "scene, s",
					Value: "cornell",
					Usage: "built-in scene name (see the scenes command)",
				},
				cli.IntFlag{
					Name:  "width",
					Value: scene.DefaultOptions().Width,
					Usage: "frame width",
				},
				cli.IntFlag{
					Name:  "height",
					Value: scene.DefaultOptions().Height,
					Usage: "frame height",
				},
				cli.IntFlag{
					Name:  "tile-size",
					Value: defaults.TileSize,
					Usage: "indirect tile edge and hemi point spacing in pixels",
				},
				cli.IntFlag{
					Name:  "indirect-passes",
					Value: defaults.IndirectPasses,
					Usage: "sweeps of the indirect tile grid",
				},
				cli.IntFlag{
					Name:  "direct-passes",
					Value: defaults.DirectPasses,
					Usage: "full-frame direct lighting passes",
				},
				cli.IntFlag{
					Name:  "workers, w",
					Value: defaults.NumWorkers,
					Usage: "number of render workers (0 = one per CPU)",
				},
				cli.IntFlag{
					Name:  "hemi-size",
					Value: defaults.HemiSize,
					Usage: "edge of the square hemisphere capture",
				},
				cli.IntFlag{
					Name:  "hemi-spp",
					Value: defaults.HemiSamples,
					Usage: "samples per hemisphere capture pixel",
				},
				cli.IntFlag{
					Name:  "samples",
					Value: defaults.SampleBudget,
					Usage: "maximum hemisphere lookups per pixel",
				},
				cli.IntFlag{
					Name:  "max-specular",
					Value: defaults.MaxSpecularBounces,
					Usage: "specular bounces followed before a path is dropped",
				},
				cli.Int64Flag{
					Name:  "seed",
					Value: defaults.Seed,
					Usage: "base random seed",
				},
				cli.StringFlag{
					Name:  "weighting",
					Value: defaults.Weighting,
					Usage: "interpolation weighting: simple, bilinear or distance",
				},
				cli.StringFlag{
					Name:  "predictor, p",
					Usage: "predictor command line, started once per worker (empty = pass captures through)",
				},
				cli.StringFlag{
					Name:  "out, o",
					Value: "output/render.png",
					Usage: "output image; the extension selects png, pfm or tif",
				},
				cli.Float64Flag{
					Name:  "exposure",
					Value: 1.0,
					Usage: "exposure for tone-mapped outputs",
				},
				cli.StringFlag{
					Name:  "serve",
					Usage: "serve progress and previews on this address, e.g. :8080",
				},
			},
			Action: renderFrame,
		},
		{
			Name:   "scenes",
			Usage:  "list built-in scenes",
			Action: listScenes,
		},
	}
	return app
}

func setupLogging(ctx *cli.Context) {
	if ctx.GlobalBool("v") {
		log.SetLevel(log.Info)
	}

	if ctx.GlobalBool("vv") {
		log.SetLevel(log.Debug)
	}
}

// configFromFlags builds the render configuration from the render flags
func configFromFlags(ctx *cli.Context) renderer.Config {
	config := renderer.DefaultConfig()
	config.TileSize = ctx.Int("tile-size")
	config.IndirectPasses = ctx.Int("indirect-passes")
	config.DirectPasses = ctx.Int("direct-passes")
	config.NumWorkers = ctx.Int("workers")
	config.HemiSize = ctx.Int("hemi-size")
	config.HemiSamples = ctx.Int("hemi-spp")
	config.SampleBudget = ctx.Int("samples")
	config.MaxSpecularBounces = ctx.Int("max-specular")
	config.Seed = ctx.Int64("seed")
	config.Weighting = ctx.String("weighting")
	return config
}

// predictorFactory returns one predictor process per worker, or passthrough
// predictors when command is empty
func predictorFactory(ctx context.Context, command string) predictor.Factory {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return predictor.PassthroughFactory()
	}
	return predictor.ProcessFactory(ctx, fields[0], fields[1:], log.New("predictor"))
}

// Render a built-in scene and write the result.
func renderFrame(ctx *cli.Context) error {
	setupLogging(ctx)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sc, err := scene.New(ctx.String("scene"), scene.Options{
		Width:  ctx.Int("width"),
		Height: ctx.Int("height"),
	})
	if err != nil {
		return err
	}

	config := configFromFlags(ctx)
	integrators := renderer.Integrators{
		Direct:   scene.NewDirectIntegrator(config.MaxSpecularBounces),
		Indirect: scene.NewPathIntegrator(sc.MaxDepth),
	}
	bounds := image.Rect(0, 0, ctx.Int("width"), ctx.Int("height"))

	r, err := renderer.New(sc.World, sc.Camera, integrators, bounds, config,
		predictorFactory(runCtx, ctx.String("predictor")), nil)
	if err != nil {
		return err
	}

	addr := ctx.String("serve")
	if addr != "" {
		console := server.NewConsole(500)
		log.SetSink(io.MultiWriter(os.Stdout, console))
		srv := server.NewServer(server.Config{
			Addr:          addr,
			Exposure:      ctx.Float64("exposure"),
			EventInterval: time.Second,
		}, r, sc, console)
		go func() {
			if err := srv.Start(runCtx); err != nil {
				logger.Errorf("%v", err)
			}
		}()
	}

	logger.Noticef("rendering scene %q", sc.Name)
	result, err := r.Render(runCtx)
	if err != nil {
		return err
	}
	displayRenderStats(result.Stats)

	out := ctx.String("out")
	start := time.Now()
	if err := writeImage(out, result.Image, ctx.Float64("exposure")); err != nil {
		return err
	}
	logger.Noticef("wrote frame to %s in %d ms", out, time.Since(start).Milliseconds())

	if addr != "" {
		logger.Notice("render complete, serving until interrupted")
		<-runCtx.Done()
	}
	return nil
}

func displayRenderStats(stats renderer.RenderStats) {
	var buf bytes.Buffer
	stats.WriteTable(&buf)
	logger.Noticef("render statistics\n%s", buf.String())
}

// writeImage encodes img according to the extension of path, creating the
// parent directory if needed
func writeImage(path string, img *film.Grid[float32], exposure float64) error {
	ext := strings.ToLower(filepath.Ext(path))
	var encode func(io.Writer) error
	switch ext {
	case ".png":
		encode = func(w io.Writer) error { return png.Encode(w, film.ToRGBA(img, exposure)) }
	case ".pfm":
		encode = func(w io.Writer) error { return film.EncodePFM(w, img) }
	case ".tif", ".tiff":
		encode = func(w io.Writer) error { return film.EncodeTIFF(w, img, exposure) }
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, ext)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := encode(f); err != nil {
		f.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return f.Close()
}

// List built-in scenes.
func listScenes(ctx *cli.Context) error {
	setupLogging(ctx)

	table := tablewriter.NewWriter(ctx.App.Writer)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Scene", "Description"})
	for _, info := range scene.List() {
		table.Append([]string{info.Name, info.Description})
	}
	table.Render()
	return nil
}
