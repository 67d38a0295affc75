package raster

import (
	"strings"

	"github.com/molscope/molscope/internal/infrastructure/render"
)

// elementColors is the CPK palette used when a style carries no explicit
// colour.  Unlisted elements fall back to deep pink so they stand out.
var elementColors = map[string]string{
	"H":  "#FFFFFF",
	"C":  "#909090",
	"N":  "#3050F8",
	"O":  "#FF0D0D",
	"F":  "#90E050",
	"CL": "#1FF01F",
	"BR": "#A62929",
	"I":  "#940094",
	"S":  "#FFFF30",
	"P":  "#FF8000",
	"B":  "#FFB5B5",
	"NA": "#AB5CF2",
	"MG": "#8AFF00",
	"K":  "#8F40D4",
	"CA": "#3DFF00",
	"FE": "#E06633",
	"ZN": "#7D80B0",
	"CU": "#C88033",
	"SI": "#F0C8A0",
}

const unknownElementColor = "#FF1493"

func colorFor(style render.Style, element string) string {
	if style.Color != "" {
		return style.Color
	}
	if c, ok := elementColors[strings.ToUpper(element)]; ok {
		return c
	}
	return unknownElementColor
}
