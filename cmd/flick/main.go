// Flick CLI - runs a movie headlessly and reports what it does.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/flickplay/flick/manifest"
	"github.com/flickplay/flick/storage"
	"github.com/flickplay/flick/vm"
)

func main() {
	frames := flag.Int("frames", 0, "Number of ticks to run (0 uses the manifest, default 1)")
	verbose := flag.Bool("v", false, "Verbose output")
	configDir := flag.String("config", "", "Directory containing flick.toml (default: walk up from cwd)")
	snapshotOut := flag.String("snapshot", "", "Write a state snapshot to this file after the run")
	printTrace := flag.Bool("trace", true, "Print trace() output to stdout")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: flick [options] [movie.swf]\n\n")
		fmt.Fprintf(os.Stderr, "Runs a movie headlessly: decodes the container, drives the timeline,\n")
		fmt.Fprintf(os.Stderr, "and executes its scripts. No rendering, no audio.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  flick game.swf                  # Run one tick, print trace output\n")
		fmt.Fprintf(os.Stderr, "  flick -frames 100 game.swf      # Run 100 ticks\n")
		fmt.Fprintf(os.Stderr, "  flick -snapshot out.cbor game.swf  # Dump the final state\n")
	}
	flag.Parse()

	if err := run(*frames, *verbose, *configDir, *snapshotOut, *printTrace, flag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(frames int, verbose bool, configDir, snapshotOut string, printTrace bool, movieArg string) error {
	var m *manifest.Manifest
	var err error
	if configDir != "" {
		m, err = manifest.Load(configDir)
	} else {
		m, err = manifest.FindAndLoad(".")
	}
	if err != nil {
		return err
	}
	if m == nil {
		m = &manifest.Manifest{}
	}

	verbosity := m.Log.Verbosity
	if verbose {
		verbosity = 2
	}
	var logFile *string
	if m.Log.File != "" {
		logFile = &m.Log.File
	}
	commonlog.Configure(verbosity, logFile)

	moviePath := movieArg
	if moviePath == "" {
		moviePath = m.MoviePath()
	}
	if moviePath == "" {
		return fmt.Errorf("no movie given (argument or player.movie in flick.toml)")
	}

	opts := vm.Options{
		Log:      commonlog.GetLogger("flick"),
		Budget:   m.Limits.InstructionBudget,
		MaxDepth: m.Limits.CallDepth,
	}
	if dbPath := m.StoragePath(); dbPath != "" {
		store, err := storage.Open(dbPath, filepath.Base(moviePath))
		if err != nil {
			return err
		}
		defer store.Close()
		opts.Store = store
	}

	player := vm.NewPlayer(opts)
	if printTrace {
		player.SetTraceSink(func(message string) {
			fmt.Println(message)
		})
	}

	data, err := os.ReadFile(moviePath)
	if err != nil {
		return err
	}
	if err := player.Load(data); err != nil {
		return err
	}

	if verbose {
		h := player.Header()
		fmt.Printf("Loaded %s: version %d, %.2f fps, %d frames declared\n",
			moviePath, h.Version, h.FrameRate, h.FrameCount)
	}

	n := frames
	if n <= 0 {
		n = m.Player.Frames
	}
	if n <= 0 {
		n = 1
	}
	if err := player.RunFrames(n); err != nil {
		return err
	}

	if verbose {
		fmt.Printf("Ran %d ticks, %d live objects, %d collections\n",
			player.Ticks(), player.Heap().Live(), player.Heap().Collections())
		player.VisitDisplayList(func(d *vm.DisplayObject) {
			fmt.Printf("  %s (depth %d, frame %d/%d)\n",
				d.Path(), d.Depth(), d.CurrentFrame()+1, d.TotalFrames())
		})
	}

	if snapshotOut != "" {
		snap, err := player.Snapshot()
		if err != nil {
			return err
		}
		if err := os.WriteFile(snapshotOut, snap, 0o644); err != nil {
			return err
		}
		if verbose {
			fmt.Printf("Wrote snapshot to %s (%d bytes)\n", snapshotOut, len(snap))
		}
	}
	return nil
}
