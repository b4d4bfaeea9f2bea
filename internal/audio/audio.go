package audio

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
)

const sampleRate = beep.SampleRate(44100)

// Note is one tone of a cue
type Note struct {
	Freq     float64
	Duration time.Duration
}

var (
	successNotes = []Note{{Freq: 660, Duration: 120 * time.Millisecond}, {Freq: 880, Duration: 180 * time.Millisecond}}
	failureNotes = []Note{{Freq: 330, Duration: 180 * time.Millisecond}, {Freq: 220, Duration: 260 * time.Millisecond}}
)

var (
	speakerOnce  sync.Once
	speakerReady bool
)

// Player plays short success and failure tones. A nil or disabled Player is silent.
type Player struct {
	enabled  bool
	volumeDB float64
	log      *log.Logger
}

// NewPlayer creates a player; enabled follows ui.sounds
func NewPlayer(enabled bool, logger *log.Logger) *Player {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Player{enabled: enabled, volumeDB: -2, log: logger}
}

// Success plays the rising cue
func (p *Player) Success() {
	p.play(successNotes)
}

// Failure plays the falling cue
func (p *Player) Failure() {
	p.play(failureNotes)
}

func (p *Player) play(notes []Note) {
	if p == nil || !p.enabled {
		return
	}

	streamer, err := Melody(sampleRate, notes)
	if err != nil {
		p.log.Debug("couldn't build cue", "err", err)
		return
	}

	if !p.ensureSpeaker() {
		return
	}

	volume := &effects.Volume{
		Streamer: streamer,
		Base:     2,
		Volume:   p.volumeDB,
		Silent:   false,
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(volume, beep.Callback(func() {
		close(done)
	})))
	<-done
}

func (p *Player) ensureSpeaker() bool {
	speakerOnce.Do(func() {
		p.log.Debug("setting up audio")
		if err := speaker.Init(sampleRate, sampleRate.N(time.Second/10)); err != nil {
			p.log.Debug("audio unavailable", "err", err)
			return
		}
		speakerReady = true
	})
	return speakerReady
}

// Melody joins sine tones into one finite streamer
func Melody(sr beep.SampleRate, notes []Note) (beep.Streamer, error) {
	parts := make([]beep.Streamer, 0, len(notes))
	for _, n := range notes {
		tone, err := generators.SineTone(sr, n.Freq)
		if err != nil {
			return nil, fmt.Errorf("failed to create %.0f Hz tone: %w", n.Freq, err)
		}
		parts = append(parts, beep.Take(sr.N(n.Duration), tone))
	}
	return beep.Seq(parts...), nil
}
