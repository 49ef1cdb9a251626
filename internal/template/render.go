package template

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"talkvid/internal/artifact"
	"talkvid/internal/avgraph"
	"talkvid/internal/logging"
	"talkvid/internal/services"
)

// Geometry is an element's bounding box in document pixels.
type Geometry struct {
	X, Y, W, H int
}

// Sizes maps element ids to their bounding boxes.
type Sizes map[string]Geometry

// Get returns the box of id or a missing-element error.
func (s Sizes) Get(id string) (Geometry, error) {
	g, ok := s[id]
	if !ok {
		return Geometry{}, services.Wrap(services.ErrMissingElement, "template", "geometry",
			fmt.Sprintf("no element with id %q", id), nil)
	}
	return g, nil
}

// Renderer rasterizes and measures templates with Inkscape. Every result is
// cached in the artifact store.
type Renderer struct {
	store  *artifact.Store
	binary string
	logger *slog.Logger
}

// NewRenderer returns a renderer that runs binary (default "inkscape").
func NewRenderer(store *artifact.Store, binary string, logger *slog.Logger) *Renderer {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "inkscape"
	}
	return &Renderer{store: store, binary: binary, logger: logging.NewComponentLogger(logger, "inkscape")}
}

// ExportPicture renders the element id (or the whole page when id is empty)
// to a transparent PNG. Zero width or height keeps Inkscape's default.
func (r *Renderer) ExportPicture(ctx context.Context, tpl *Template, id string, width, height int) (artifact.Ref, error) {
	key := artifact.New("svg.png").Hash(tpl.Key()).String(id).Int(int64(width)).Int(int64(height)).Sum()
	desc := artifact.Description{Key: key, Ext: ".png", Label: "picture " + labelFor(tpl, id)}
	path, err := r.store.GetOrBuild(ctx, desc, func(ctx context.Context, tmpPath string) error {
		svgPath, err := tpl.Save(ctx, r.store)
		if err != nil {
			return err
		}
		args := []string{
			svgPath,
			"--export-type=png",
			"--export-filename=" + tmpPath,
			"--export-background-opacity=0",
		}
		if id != "" {
			args = append(args, "--export-area-snap", "--export-id="+id)
		} else {
			args = append(args, "--export-area-page")
		}
		if width > 0 {
			args = append(args, "--export-width="+strconv.Itoa(width))
		}
		if height > 0 {
			args = append(args, "--export-height="+strconv.Itoa(height))
		}
		_, err = r.run(ctx, args)
		return err
	})
	if err != nil {
		return artifact.Ref{}, err
	}
	return artifact.Ref{Key: key, Path: path}, nil
}

// ElementSizes queries the bounding box of every element in the document.
// The raw Inkscape output is cached as a .sizes artifact.
func (r *Renderer) ElementSizes(ctx context.Context, tpl *Template) (Sizes, error) {
	key := artifact.New("svg.sizes").Hash(tpl.Key()).Sum()
	desc := artifact.Description{Key: key, Ext: ".sizes", Label: "sizes " + tpl.Name()}
	path, err := r.store.GetOrBuildBytes(ctx, desc, func(ctx context.Context) ([]byte, error) {
		svgPath, err := tpl.Save(ctx, r.store)
		if err != nil {
			return nil, err
		}
		return r.run(ctx, []string{"--query-all", svgPath})
	})
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sizes: %w", err)
	}
	return ParseSizes(raw)
}

// Geometry returns the bounding box of one element.
func (r *Renderer) Geometry(ctx context.Context, tpl *Template, id string) (Geometry, error) {
	sizes, err := r.ElementSizes(ctx, tpl)
	if err != nil {
		return Geometry{}, err
	}
	g, err := sizes.Get(id)
	if err != nil {
		return Geometry{}, services.Wrap(services.ErrMissingElement, "template", "geometry",
			fmt.Sprintf("no element with id %q in %s", id, tpl.Name()), nil)
	}
	return g, nil
}

// ParseSizes reads `inkscape --query-all` output: one id,x,y,w,h record per
// element. Positions are truncated and extents rounded up.
func ParseSizes(raw []byte) (Sizes, error) {
	reader := csv.NewReader(bytes.NewReader(raw))
	reader.FieldsPerRecord = -1
	sizes := make(Sizes)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse sizes: %w", err)
		}
		if len(record) != 5 {
			continue
		}
		var values [4]float64
		for i, field := range record[1:] {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("parse sizes: element %q: %w", record[0], err)
			}
			values[i] = v
		}
		sizes[strings.TrimSpace(record[0])] = Geometry{
			X: int(values[0]),
			Y: int(values[1]),
			W: int(math.Ceil(values[2])),
			H: int(math.Ceil(values[3])),
		}
	}
	return sizes, nil
}

// ExportedSlide renders element id of the template and loops it into a
// transparent video of the given duration.
func (r *Renderer) ExportedSlide(ctx context.Context, env avgraph.Env, tpl *Template, id string, duration float64, fps int) (*avgraph.Object, error) {
	picture, err := r.ExportPicture(ctx, tpl, id, 0, 0)
	if err != nil {
		return nil, err
	}
	return avgraph.Image(ctx, env, picture.Path, duration, fps)
}

// ResizedByTemplate scales obj to the box of element id and places it at the
// box position on a canvas the size of the template.
func (r *Renderer) ResizedByTemplate(ctx context.Context, obj *avgraph.Object, tpl *Template, id string) (*avgraph.Object, error) {
	g, err := r.Geometry(ctx, tpl, id)
	if err != nil {
		return nil, err
	}
	width, err := tpl.Width()
	if err != nil {
		return nil, err
	}
	height, err := tpl.Height()
	if err != nil {
		return nil, err
	}
	resized, err := obj.ResizedBy(g.W, g.H)
	if err != nil {
		return nil, err
	}
	return resized.Padded(g.X, g.Y, width, height)
}

func (r *Renderer) run(ctx context.Context, args []string) ([]byte, error) {
	logger := logging.WithContext(ctx, r.logger)
	logger.Debug("inkscape invocation", logging.String("args", strings.Join(args, " ")))

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.binary, args...) //nolint:gosec
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	started := time.Now()
	if err := cmd.Run(); err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return nil, &services.ToolError{
			Tool:     "inkscape",
			Args:     args,
			ExitCode: exitCode,
			Stderr:   stderr.String(),
			Err:      err,
		}
	}
	logger.Debug("inkscape finished", logging.Duration("elapsed", time.Since(started)))
	return stdout.Bytes(), nil
}

func labelFor(tpl *Template, id string) string {
	if id == "" {
		return tpl.Name()
	}
	return tpl.Name() + "#" + id
}
