package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/Conceptual-Machines/magda-live-go/config"
	"github.com/Conceptual-Machines/magda-live-go/logging"
	"github.com/Conceptual-Machines/magda-live-go/midiout"
	"github.com/Conceptual-Machines/magda-live-go/notegen"
	"github.com/Conceptual-Machines/magda-live-go/scheduler"
)

// logSink prints emissions instead of sending MIDI. Used when no output
// port is available.
type logSink struct{}

func (logSink) EmitNoteOn(pitch, velocity, channel int) error {
	fmt.Printf("🎹 note-on  pitch=%d velocity=%d channel=%d t=%s\n",
		pitch, velocity, channel, time.Now().Format("15:04:05.000"))
	return nil
}

func (logSink) EmitNoteOff(pitch, channel int) error {
	fmt.Printf("🎹 note-off pitch=%d channel=%d t=%s\n",
		pitch, channel, time.Now().Format("15:04:05.000"))
	return nil
}

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  Warning: Could not load .env file: %v", err)
		log.Println("   Continuing with environment variables...")
	}

	cfg, err := config.Load(os.Getenv("MAGDA_CONFIG"))
	if err != nil {
		log.Fatalf("❌ ERROR: could not load config: %v", err)
	}

	logger := logging.New(cfg.Debug)
	defer logger.Sync()

	var sink scheduler.Sink = logSink{}
	if portName := os.Getenv("MAGDA_MIDI_PORT"); portName != "" {
		device, err := midiout.Open(portName, logger)
		if err != nil {
			log.Fatalf("❌ ERROR: could not open MIDI port: %v", err)
		}
		defer device.Close()
		sink = device
	}

	sched := scheduler.New(sink, logger)

	// Two bars of an E minor arpeggio as sixteenth notes, then a short
	// chord progression.
	arp, err := notegen.Arpeggio(notegen.Pattern{
		Chord:     "Em",
		NoteBeats: 0.25,
		Repeat:    2,
		Direction: notegen.DirectionUpDown,
	}, 0)
	if err != nil {
		log.Fatalf("❌ ERROR: arpeggio: %v", err)
	}

	prog, err := notegen.Progression(notegen.Pattern{
		Chords:      []string{"C", "Am", "F", "G"},
		LengthBeats: 8,
		Velocity:    90,
	}, arp[len(arp)-1].StartBeats+arp[len(arp)-1].LengthBeats)
	if err != nil {
		log.Fatalf("❌ ERROR: progression: %v", err)
	}

	notes := append(arp, prog...)

	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("Playing %d notes at 120 BPM\n", len(notes))
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	if err := sched.Load(notes, 120); err != nil {
		log.Fatalf("❌ ERROR: load: %v", err)
	}
	if err := sched.Play(); err != nil {
		log.Fatalf("❌ ERROR: play: %v", err)
	}

	// Stop mid-run to demonstrate bounded-latency cancellation, then
	// replay to completion.
	time.Sleep(2 * time.Second)
	sched.Stop()
	fmt.Printf("⏹  Stopped early, state=%s\n", sched.State())

	if err := sched.Load(notes, 120); err != nil {
		log.Fatalf("❌ ERROR: reload: %v", err)
	}
	if err := sched.Play(); err != nil {
		log.Fatalf("❌ ERROR: replay: %v", err)
	}

	for sched.State() == scheduler.StatePlaying {
		time.Sleep(50 * time.Millisecond)
	}
	fmt.Printf("✅ Done, state=%s\n", sched.State())
}
