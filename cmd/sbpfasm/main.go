// Command sbpfasm assembles a single Solana SBF/BPF assembly source
// file into a position-independent ELF64 shared object. CLI surface
// grounded on the teacher's main.go: stdlib flag package, no cobra,
// a -v/-verbose debug-print convention, and a -watch rebuild loop.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/deanmlittle/sbpf/internal/assemble"
	"github.com/deanmlittle/sbpf/internal/config"
	"github.com/deanmlittle/sbpf/internal/logging"
	"github.com/deanmlittle/sbpf/internal/watch"
)

const versionString = "sbpfasm 0.1.0"

func main() {
	var (
		outFlag     = flag.String("o", "", "deploy directory for the assembled .so (default: source file's directory)")
		watchFlag   = flag.Bool("watch", false, "watch mode: reassemble on source file changes")
		noColor     = flag.Bool("no-color", false, "disable colored diagnostic output")
		verbose     = flag.Bool("v", false, "verbose mode")
		verboseLong = flag.Bool("verbose", false, "verbose mode")
		version     = flag.Bool("version", false, "print version information and exit")
	)
	flag.Parse()

	if *version {
		fmt.Println(versionString)
		os.Exit(0)
	}

	logging.Verbose = *verbose || *verboseLong

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: sbpfasm [flags] <source.s>")
		flag.PrintDefaults()
		os.Exit(2)
	}
	sourcePath := flag.Arg(0)

	cfg := config.Load()
	useColor := !(*noColor || cfg.NoColor)

	deployDir := *outFlag
	if deployDir == "" {
		deployDir = cfg.OutDir
	}
	if deployDir == "" {
		abs, err := filepath.Abs(sourcePath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		deployDir = filepath.Dir(abs)
	}

	opts := assemble.Options{UseColor: useColor}

	build := func(path string) {
		logging.Debugf("assembling %s", path)
		if err := assemble.Assemble(path, deployDir, opts); err != nil {
			logging.Errorf("%s", err)
			if !*watchFlag {
				os.Exit(1)
			}
			return
		}
		logging.Debugf("wrote %s", deployDir)
	}

	build(sourcePath)

	if *watchFlag {
		w, err := watch.New(cfg.WatchDebounceMs, build)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer w.Close()
		if err := w.AddFile(sourcePath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		logging.Debugf("watching %s for changes", sourcePath)
		w.Run()
	}
}
