package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/Conceptual-Machines/magda-live-go/config"
	"github.com/Conceptual-Machines/magda-live-go/engine"
	"github.com/Conceptual-Machines/magda-live-go/hub"
	"github.com/Conceptual-Machines/magda-live-go/logging"
	"github.com/Conceptual-Machines/magda-live-go/metrics"
	"github.com/Conceptual-Machines/magda-live-go/transport"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  Warning: Could not load .env file: %v", err)
		log.Println("   Continuing with environment variables...")
	}

	cfgPath := os.Getenv("MAGDA_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("❌ ERROR: could not load config: %v", err)
	}
	cfg.Engine.AnalysisOnMutation = true

	logger := logging.New(cfg.Debug)
	defer logger.Sync()

	if cfg.SentryDSN != "" {
		if err := metrics.Init(cfg.SentryDSN, cfg.Debug); err != nil {
			log.Printf("⚠️  Warning: Sentry init failed: %v", err)
		}
		defer metrics.Flush(2 * time.Second)
	}

	eng, err := engine.New(cfg, logger)
	if err != nil {
		log.Fatalf("❌ ERROR: could not build engine: %v", err)
	}

	eng.Hub.Subscribe(hub.KindAnalysisUpdate, func(ev hub.Event) {
		fmt.Printf("\n📊 Analysis update for track %s:\n", ev.Analysis.TrackID)
		pretty, _ := json.MarshalIndent(ev.Analysis, "  ", "  ")
		fmt.Printf("  %s\n", pretty)
	})

	pipe := transport.NewPipe(64)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go eng.Run(ctx, pipe)

	// Simulated session traffic: a project, two tracks and a short
	// eighth-note bass figure.
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println("Feeding simulated session events")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	pipe.Inject("project/name", "Live Demo")
	pipe.Inject("transport/tempo", 120.0)
	pipe.Inject("track/1/name", "Bass")
	pipe.Inject("track/1/kind", "midi")
	pipe.Inject("track/1/volume", 0.8)
	pipe.Inject("track/2/name", "Keys")
	pipe.Inject("region/r1/track", "1")
	pipe.Inject("region/r1/start", 0.0)
	pipe.Inject("region/r1/length", 8.0)

	bassLine := []int{36, 36, 43, 36, 41, 36, 43, 48}
	for _, pitch := range bassLine {
		pipe.Inject("note/on", "1", pitch, 0, 100)
		time.Sleep(125 * time.Millisecond)
		pipe.Inject("note/off", "1", pitch, 0)
		time.Sleep(125 * time.Millisecond)
	}

	// Let the periodic analysis pass pick everything up.
	time.Sleep(cfg.Engine.AnalysisInterval + 200*time.Millisecond)

	snap := eng.Store.Snapshot()
	fmt.Printf("\n✅ Final state: project=%q tempo=%.0f tracks=%d regions=%d notes=%d\n",
		snap.Name, snap.Tempo, len(snap.Tracks), len(snap.Regions), eng.Buffer.Len())

	if a, ok := eng.Analysis.Analysis("1"); ok {
		fmt.Printf("🎸 Track 1 role=%s density=%.2f swing=%.2f\n",
			a.MusicalRole, a.NoteDensity, a.SwingRatio)
	}

	drainOutbound(pipe)
}

func drainOutbound(pipe *transport.Pipe) {
	for {
		select {
		case msg := <-pipe.Outbound():
			fmt.Printf("📤 outbound: %s %v\n", msg.Address, msg.Args)
		default:
			return
		}
	}
}
