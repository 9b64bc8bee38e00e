package infra

import (
	"fmt"
	"io"
	"strings"
)

// ANSI Color Codes
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorCyan   = "\033[36m"
)

// PrintBanner writes the keeper startup banner. Mainnet with a non-paper
// submitter is shown in red.
func PrintBanner(w io.Writer, cfg *Config) {
	mode := strings.ToUpper(cfg.Keeper.Mode)
	if mode == "" {
		mode = "PAPER"
	}
	network := cfg.Cluster.Network
	live := mode != "PAPER"
	mainnet := network == NetworkMainnet || network == NetworkHelius

	color := ColorCyan
	modeDesc := "DRY RUN (LOG ONLY)"
	switch {
	case live && mainnet:
		color = ColorRed
		modeDesc = "MAINNET SUBMISSION"
	case live:
		color = ColorYellow
		modeDesc = "EXTERNAL SIGNER"
	}

	line := func(format string, args ...any) {
		fmt.Fprintf(w, "%s"+format+"%s\n", append(append([]any{color}, args...), ColorReset)...)
	}

	fmt.Fprintln(w)
	line("###########################################################")
	line("#               Percolator Keeper                         #")
	line("#                                                         #")
	line("#   MODE:    %-44s #", mode)
	line("#   TYPE:    %-44s #", modeDesc)
	line("#   NETWORK: %-44s #", network)
	line("#   VERSION: %-44s #", AppVersion)
	line("#                                                         #")
	if live && mainnet {
		fmt.Fprintf(w, "%s#   WARNING: CRANKS WILL BE SENT TO MAINNET               #%s\n", ColorRed, ColorReset)
	}
	line("###########################################################")
	fmt.Fprintln(w)
}
