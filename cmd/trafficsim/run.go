package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"

	"github.com/gridtown/trafficsim/internal/server"
	"github.com/gridtown/trafficsim/pkg/report"
	"github.com/gridtown/trafficsim/pkg/scenario"
	"github.com/gridtown/trafficsim/pkg/sim"
)

func newLogger(verbose bool) *log.Logger {
	logger := log.New(os.Stderr)
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

func runScenario(path string, seconds int, verbose bool) error {
	logger := newLogger(verbose)

	sc, err := scenario.Load(path)
	if err != nil {
		return err
	}
	w, err := scenario.BuildWorld(sc, logger)
	if err != nil {
		return err
	}

	ticks := int64(seconds) * int64(sc.TickRate)
	logger.Info("running scenario", "name", sc.Name, "ticks", ticks)
	for i := int64(0); i < ticks; i++ {
		w.Step()
	}

	printWorldSummary(w)
	return nil
}

func runValidate(path string) error {
	sc, err := scenario.Load(path)
	if err != nil {
		return err
	}

	rep := scenario.Validate(sc)
	if rep.Valid {
		// Scenario checks passed; build the world so the network
		// builder gets its say too.
		if w, err := scenario.BuildWorld(sc, nil); err == nil && w.Report != nil {
			rep.Merge(w.Report)
		} else if err != nil {
			return err
		}
	}

	printReport(rep)
	if !rep.Valid {
		os.Exit(1)
	}
	return nil
}

func runServe(path string, addr string, verbose bool) error {
	logger := newLogger(verbose)

	sc, err := scenario.Load(path)
	if err != nil {
		return err
	}
	w, err := scenario.BuildWorld(sc, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	srv := server.New(w, logger)
	return srv.ListenAndServe(ctx, addr)
}

func printReport(rep *report.Report) {
	for _, r := range rep.Errors {
		fmt.Printf("  error   [%s] %s", r.Level, r.Message)
		if r.Cell != "" {
			fmt.Printf(" (cell %s)", r.Cell)
		}
		fmt.Println()
	}
	for _, r := range rep.Warnings {
		fmt.Printf("  warning [%s] %s\n", r.Level, r.Message)
	}
	for _, r := range rep.Info {
		fmt.Printf("  info    [%s] %s\n", r.Level, r.Message)
	}
	if rep.Summary != "" {
		fmt.Println(rep.Summary)
	}
	if rep.Valid {
		fmt.Println("valid")
	}
}

func printWorldSummary(w *sim.World) {
	states := make(map[sim.CarState]int)
	for _, c := range w.Cars() {
		states[c.State]++
	}
	fmt.Printf("tick %d: %d cars, %d lots, %d lights, %d pending events\n",
		w.Tick, len(w.Cars()), len(w.Lots()), len(w.Lights), w.Events.Len())
	for state := sim.CarParked; state <= sim.CarInactive; state++ {
		if n := states[state]; n > 0 {
			fmt.Printf("  %-26s %d\n", state, n)
		}
	}
}
