package cli

import (
	"fmt"
	"io"
	"strings"
)

var bannerLines = []string{
	`       _           _                         _`,
	`   ___| |__   __ _| |_      _ __ ___  _   _| |_ ___ _ __`,
	`  / __| '_ \ / _' | __|____| '__/ _ \| | | | __/ _ \ '__|`,
	` | (__| | | | (_| | ||_____| | | (_) | |_| | ||  __/ |`,
	`  \___|_| |_|\__,_|\__|    |_|  \___/ \__,_|\__\___|_|`,
}

// PrintBanner writes the startup banner followed by one line per provider.
func PrintBanner(w io.Writer, version, addr string, providers []string) {
	for i, line := range bannerLines {
		progress := float64(i) / float64(len(bannerLines)-1)
		fmt.Fprintln(w, Gradient(line, BrandBlue, BrandPurple, progress))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s %s %s\n", Arrow(), Style("version ", Dim), version)
	fmt.Fprintf(w, "  %s %s %s\n", Arrow(), Style("listening", Dim), addr)
	if len(providers) == 0 {
		fmt.Fprintf(w, "  %s %s\n", CrossMark(), Style("no providers registered", Yellow))
	} else {
		fmt.Fprintf(w, "  %s %s %s\n", CheckMark(), Style("providers", Dim), strings.Join(providers, ", "))
	}
	fmt.Fprintln(w)
}
