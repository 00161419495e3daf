package observability

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"golang.org/x/term"
)

const (
	colorReset = "\033[0m"
	colorCyan  = "\033[36m"
	colorBold  = "\033[1m"
	colorDim   = "\033[2m"
)

func isTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func termWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80
	}
	return w
}

// PrintBanner prints the startup header. Colors and the rule line are
// skipped when stdout is not a terminal (piped output, CI).
func PrintBanner(version, model string) {
	if !isTTY() {
		fmt.Printf("codesmith %s (model: %s, %s/%s)\n", version, model, runtime.GOOS, runtime.GOARCH)
		return
	}

	width := termWidth()
	if width > 72 {
		width = 72
	}
	rule := strings.Repeat("─", width)

	fmt.Println(colorCyan + rule + colorReset)
	fmt.Printf("%s%s  C O D E S M I T H%s  %s\n", colorBold, colorCyan, colorReset, version)
	fmt.Printf("%s  structured coding agent · model %s · %s/%s%s\n", colorDim, model, runtime.GOOS, runtime.GOARCH, colorReset)
	fmt.Println(colorCyan + rule + colorReset)
	fmt.Println("  Type a request, or 'exit' to quit.")
	fmt.Println()
}
