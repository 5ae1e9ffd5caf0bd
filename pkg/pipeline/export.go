package pipeline

import (
	"bytes"
	"fmt"

	"github.com/mkuhlmann/flowlayout/pkg/export"
	flowio "github.com/mkuhlmann/flowlayout/pkg/io"
)

// renderArtifacts produces every requested output format from a layout
// document. DOT is generated once and reused for the Graphviz formats.
func renderArtifacts(doc flowio.LayoutDocument, opts Options) (map[string][]byte, error) {
	artifacts := make(map[string][]byte, len(opts.Formats))

	var dot string
	needDOT := func() (string, error) {
		if dot != "" {
			return dot, nil
		}
		g, res, err := doc.ToResult()
		if err != nil {
			return "", err
		}
		dot = export.ToDOT(g, res, export.Options{Detailed: opts.Detailed})
		return dot, nil
	}

	for _, format := range opts.Formats {
		switch format {
		case FormatJSON:
			var buf bytes.Buffer
			if err := flowio.WriteLayout(doc, &buf); err != nil {
				return nil, fmt.Errorf("render json: %w", err)
			}
			artifacts[format] = buf.Bytes()

		case FormatDOT:
			d, err := needDOT()
			if err != nil {
				return nil, fmt.Errorf("render dot: %w", err)
			}
			artifacts[format] = []byte(d)

		case FormatSVG:
			d, err := needDOT()
			if err != nil {
				return nil, fmt.Errorf("render svg: %w", err)
			}
			svg, err := export.RenderSVG(d)
			if err != nil {
				return nil, fmt.Errorf("render svg: %w", err)
			}
			artifacts[format] = svg

		case FormatPNG:
			d, err := needDOT()
			if err != nil {
				return nil, fmt.Errorf("render png: %w", err)
			}
			png, err := export.RenderPNG(d)
			if err != nil {
				return nil, fmt.Errorf("render png: %w", err)
			}
			artifacts[format] = png

		default:
			return nil, ValidateFormat(format)
		}
	}

	return artifacts, nil
}
