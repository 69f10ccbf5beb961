package spotdl

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"
)

// helperCommand re-executes the test binary as a stand-in for spotdl.
func helperCommand(t *testing.T) []string {
	t.Helper()
	t.Setenv("GO_WANT_HELPER_PROCESS", "1")
	return []string{os.Args[0], "-test.run=^TestHelperProcess$", "--"}
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	args := os.Args
	for i, arg := range args {
		if arg == "--" {
			args = args[i+1:]
			break
		}
	}

	if len(args) > 0 && args[len(args)-1] == "--version" {
		if os.Getenv("HELPER_VERSION_HANG") == "1" {
			// A grandchild inherits stdout and outlives this process.
			grandchild := exec.Command(os.Args[0], "-test.run=^TestHelperProcess$", "--", "helper://sleep")
			grandchild.Env = append(os.Environ(), "HELPER_VERSION_HANG=0", "NO_COLOR=1")
			grandchild.Stdout = os.Stdout
			grandchild.Start()
			time.Sleep(30 * time.Second)
		}
		fmt.Println(os.Getenv("HELPER_VERSION"))
		code, _ := strconv.Atoi(os.Getenv("HELPER_VERSION_EXIT"))
		os.Exit(code)
	}

	var mode string
	for _, arg := range args {
		if after, ok := strings.CutPrefix(arg, "helper://"); ok {
			mode = after
		}
	}

	if os.Getenv("NO_COLOR") != "1" {
		fmt.Println("NO_COLOR not set")
		os.Exit(3)
	}

	switch mode {
	case "ok":
		fmt.Println(`Downloaded "Daft Punk - One More Time": https://music.youtube.com/watch?v=x`)
		os.Exit(0)
	case "skip":
		fmt.Fprintln(os.Stderr, "\x1b[33mSkipping\x1b[0m Daft Punk - One More Time (file already exists)")
		os.Exit(0)
	case "notfound":
		fmt.Fprintln(os.Stderr, `LookupError: No results found for song: "Obscure Artist - Rare Song"`)
		os.Exit(1)
	case "fail":
		fmt.Println("Processing query")
		fmt.Fprintln(os.Stderr, "AudioProviderError: network unreachable")
		os.Exit(2)
	case "sleep":
		time.Sleep(30 * time.Second)
		os.Exit(0)
	case "pwd":
		wd, _ := os.Getwd()
		want := os.Getenv("HELPER_WANT_DIR")
		wd, _ = filepath.EvalSymlinks(wd)
		want, _ = filepath.EvalSymlinks(want)
		if wd != want {
			fmt.Printf("cwd %s, want %s\n", wd, want)
			os.Exit(4)
		}
		os.Exit(0)
	default:
		fmt.Printf("unknown mode %q\n", mode)
		os.Exit(5)
	}
}
