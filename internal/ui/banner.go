package ui

import (
	"fmt"

	"github.com/common-nighthawk/go-figure"
	"github.com/fatih/color"
)

func PrintBanner() {
	banner := figure.NewFigure("GeoWatch", "isometric1", true)
	color.New(color.FgCyan).Fprintln(Output, banner.String())
	fmt.Fprintln(Output)
}
