// Program dxwatch connects to a DX cluster, classifies incoming spots
// against DXCC Challenge and FFMA progress, and prints the ones still
// needed, with a periodic summary of rates and buffer sizes.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"dxwatch/award"
	"dxwatch/classify"
	"dxwatch/cluster"
	"dxwatch/config"
	"dxwatch/cty"
	"dxwatch/gridstore"
)

const statsInterval = 5 * time.Minute

func main() {
	configPath := flag.String("config", "dxwatch.yaml", "path to YAML config file")
	neededOnly := flag.Bool("needed-only", false, "print only spots an award still needs")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	if cfg.Logging.File != "" {
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			log.Fatalf("Error opening log file: %v", err)
		}
		defer f.Close()
		log.SetOutput(f)
	}
	log.Printf("dxwatch starting")
	cfg.Print()

	resolver := loadResolver(cfg)
	tracker, store := loadTracker(cfg)
	if store != nil {
		defer store.Close()
	}

	classifier := classify.NewClassifier(classify.Options{
		Resolver:        resolver,
		Tracker:         tracker,
		GridBand:        cfg.Awards.GridBand,
		RegularCapacity: cfg.Display.BufferSize,
		NeededTTL:       cfg.NeededTTL(),
	})

	filter := classify.NewFilter(cfg.Display.Bands, cfg.Display.GridPrefix,
		cfg.Display.EntityContains, cfg.Display.BlockedSpotters)
	filter.NeededOnly = *neededOnly

	rebuilder := classify.NewRebuilder(cfg.RebuildInterval(), func() {
		snap := classifier.Snapshot(filter)
		if len(snap) > 0 {
			printSpot(snap[0])
		}
	})
	rebuilder.Start()
	defer rebuilder.Stop()

	link := cluster.NewLink(cluster.Options{
		Host:           cfg.Cluster.Host,
		Port:           cfg.Cluster.Port,
		Callsign:       cfg.Cluster.Callsign,
		LoginCommands:  cfg.Cluster.LoginCommands,
		ReconnectDelay: cfg.ReconnectDelay(),
	})
	link.Start()
	defer link.Stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		consume(link, classifier, rebuilder)
	}()

	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	log.Printf("Connected pipeline running. Press Ctrl+C to stop.")

	for {
		select {
		case sig := <-sigChan:
			log.Printf("Received %v, shutting down", sig)
			link.Stop()
			<-done
			return
		case <-ticker.C:
			printStats(classifier, tracker)
		}
	}
}

// consume drains link events until the link shuts down and its event
// channel closes.
func consume(link *cluster.Link, classifier *classify.Classifier, rebuilder *classify.Rebuilder) {
	for ev := range link.Events() {
		switch ev := ev.(type) {
		case cluster.SpotEvent:
			c := classifier.Process(ev.Spot)
			if c.Needed() {
				printSpot(c)
			}
			rebuilder.Request()
		case cluster.SolarEvent:
			log.Printf("Solar: SFI=%d A=%d K=%d (%s)",
				ev.Solar.Flux, ev.Solar.A, ev.Solar.K, ev.Solar.Date)
		case cluster.StatusEvent:
			if ev.Message != "" {
				log.Printf("Cluster [%s]: %s", ev.State, ev.Message)
			} else {
				log.Printf("Cluster [%s]", ev.State)
			}
		case cluster.SentEvent:
			log.Printf("Sent: %s", ev.Command)
		}
	}
}

// loadResolver builds the prefix resolver, degrading to an empty one when
// the data files are missing so spots still flow unclassified.
func loadResolver(cfg *config.Config) *cty.Resolver {
	if cfg.Data.CountryFile == "" {
		log.Printf("No country file configured; entity resolution disabled")
		return cty.Empty()
	}
	resolver, err := cty.Load(cfg.Data.CountryFile, cfg.Data.EntityMapFile)
	if err != nil {
		log.Printf("Warning: entity resolution disabled: %v", err)
		return resolver
	}
	log.Printf("Loaded prefix database from %s", cfg.Data.CountryFile)
	return resolver
}

// loadTracker assembles award state from the configured sources. Worked
// grids prefer the SQLite store; an ADIF or JSON file, when configured,
// re-imports into the store first.
func loadTracker(cfg *config.Config) (*award.Tracker, *gridstore.Store) {
	tracker := award.NewTracker()

	if path := cfg.Data.ChallengeFile; path != "" {
		if err := tracker.LoadChallengeFile(path); err != nil {
			log.Printf("Warning: Challenge tracking disabled: %v", err)
		} else {
			st := tracker.Challenge()
			log.Printf("Loaded %s Challenge slots (%d entities)",
				humanize.Comma(int64(st.TotalSlots)), st.TotalEntities)
		}
	}
	if path := cfg.Data.EligibleFile; path != "" {
		if err := tracker.LoadEligibleGridsFile(path); err != nil {
			log.Printf("Warning: grid tracking disabled: %v", err)
		}
	}

	var store *gridstore.Store
	if cfg.Data.GridDB != "" {
		s, err := gridstore.Open(cfg.Data.GridDB)
		if err != nil {
			log.Printf("Warning: grid store unavailable: %v", err)
		} else {
			store = s
		}
	}

	imported := importWorkedGrids(cfg, tracker)
	if store != nil {
		if imported != nil {
			if err := store.Replace(imported); err != nil {
				log.Printf("Warning: grid store update failed: %v", err)
			}
		}
		grids, err := store.Load()
		if err != nil {
			log.Printf("Warning: grid store read failed: %v", err)
		} else {
			tracker.SetWorkedGrids(grids)
		}
	}

	st := tracker.Grids()
	if st.Eligible > 0 {
		log.Printf("Grid award: %d/%d worked (%.1f%%)", st.Worked, st.Eligible, st.Completion)
	}
	return tracker, store
}

// importWorkedGrids reads worked grids from the ADIF log or the JSON
// summary, whichever is configured. Returns nil when neither applies.
func importWorkedGrids(cfg *config.Config, tracker *award.Tracker) map[string]award.WorkedGrid {
	if path := cfg.Data.ADIFFile; path != "" {
		f, err := os.Open(path)
		if err != nil {
			log.Printf("Warning: ADIF import skipped: %v", err)
			return nil
		}
		defer f.Close()
		grids, err := award.ParseADIF(f, award.ADIFOptions{
			Band:     cfg.Awards.GridBand,
			HomeGrid: cfg.Awards.HomeGrid,
		})
		if err != nil {
			log.Printf("Warning: ADIF parse failed: %v", err)
			return nil
		}
		log.Printf("Imported %d worked grids from %s", len(grids), path)
		tracker.SetWorkedGrids(grids)
		return grids
	}
	if path := cfg.Data.WorkedFile; path != "" {
		if err := tracker.LoadWorkedGridsFile(path); err != nil {
			log.Printf("Warning: worked-grid load failed: %v", err)
		}
	}
	return nil
}

func printSpot(c classify.Classified) {
	s := c.Spot
	mark := " "
	switch {
	case c.NeededChallenge && c.NeededGrid:
		mark = "*"
	case c.NeededChallenge:
		mark = "C"
	case c.NeededGrid:
		mark = "G"
	}
	fmt.Printf("%s %-10s %8s %-5s %-6s %s de %s %s\n",
		mark, s.Call, s.Freq, s.Band, s.Grid, s.Time, s.Spotter, s.Comment)
}

func printStats(classifier *classify.Classifier, tracker *award.Tracker) {
	st := tracker.Grids()
	log.Printf("Stats: %s spots/min, needed=%d buffered=%d, grids %d/%d",
		humanize.Comma(int64(classifier.Rate())),
		classifier.NeededCount(), classifier.RegularCount(),
		st.Worked, st.Eligible)
}
