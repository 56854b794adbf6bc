package ui

import (
	"fmt"
	"strings"

	"github.com/Pranavrh53/Geo-Watch/internal/landcover"
	"github.com/Pranavrh53/Geo-Watch/internal/properties"
	"github.com/Pranavrh53/Geo-Watch/internal/utils"
	"github.com/fatih/color"
)

func codeNames(taxonomy landcover.Taxonomy, codes []landcover.ClassCode) string {
	names := make([]string, len(codes))
	for i, code := range codes {
		names[i] = fmt.Sprintf("%s(%d)", taxonomy.Name(code), code)
	}
	return strings.Join(names, ", ")
}

// PrintRules lists the class taxonomy followed by the transition rules,
// each drawn in its overlay colour.
func PrintRules(taxonomy landcover.Taxonomy, noData landcover.ClassCode, rules []landcover.TransitionRule) {
	success.Fprintln(Output, "Classes:")
	for _, code := range taxonomy.Codes() {
		suffix := ""
		if code == noData {
			suffix = " (no data)"
		}
		fmt.Fprintf(Output, "  %d  %s%s\n", code, taxonomy.Name(code), suffix)
	}

	success.Fprintln(Output, "\nRules:")
	for _, rule := range rules {
		swatch := color.RGB(int(rule.Color[0]), int(rule.Color[1]), int(rule.Color[2]))
		swatch.Fprint(Output, "  ■ ")
		fmt.Fprintf(Output, "%-16s %s -> %s\n", rule.Identifier(), codeNames(taxonomy, rule.From), codeNames(taxonomy, rule.To))
	}
}

func PrintRegions(regions map[string]properties.Region) {
	if len(regions) == 0 {
		PrintWarning("No regions configured. Add them under 'regions' in the config file.")
		return
	}
	success.Fprintln(Output, "Available regions:")
	for _, key := range utils.SortedKeys(regions) {
		region := regions[key]
		fmt.Fprintf(Output, "  - %-12s %-12s W %.4f S %.4f E %.4f N %.4f\n",
			key, region.Name, region.West, region.South, region.East, region.North)
	}
}
