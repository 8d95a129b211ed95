// Package state holds the authoritative in-memory snapshot of the live DAW
// session. The store is the single serialization point for writers: every
// apply call mutates exactly one field under one mutex, and readers get
// deep-copied snapshots, so a snapshot can never observe a torn entity.
package state

import (
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Conceptual-Machines/magda-live-go/models"
	"go.uber.org/zap"
)

// errUnknownField marks a field name no setter exists for. Unknown fields are
// programming errors: DPanic in debug builds, a counted warning in release.
var errUnknownField = errors.New("unknown field")

// Store is the live ProjectState aggregate.
type Store struct {
	mu          sync.Mutex
	name        string
	tempo       float64
	timeSig     models.TimeSignature
	sampleRate  int
	tracks      map[string]*models.Track
	regions     map[string]*models.Region
	selection   *models.Selection
	recent      []models.NoteEvent
	recentCap   int
	lastUpdated time.Time

	unknownFields atomic.Uint64

	now    func() time.Time
	logger *zap.Logger
}

// New creates an empty store. recentCap bounds the note history kept on the
// project snapshot.
func New(recentCap int, logger *zap.Logger) *Store {
	if recentCap <= 0 {
		recentCap = 128
	}
	return &Store{
		tempo:      120,
		timeSig:    models.TimeSignature{Numerator: 4, Denominator: 4},
		sampleRate: 44100,
		tracks:     map[string]*models.Track{},
		regions:    map[string]*models.Region{},
		recentCap:  recentCap,
		now:        time.Now,
		logger:     logger,
	}
}

// SetClock overrides the store clock, for tests.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

// ApplyTrackField creates the track on first reference and sets one field.
// A malformed value is rejected before any mutation happens.
func (s *Store) ApplyTrackField(trackID, field string, value any) error {
	set, err := trackSetter(field, value)
	if err != nil {
		return s.fieldError("track", field, value, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tracks[trackID]
	if !ok {
		t = &models.Track{
			ID:     trackID,
			Kind:   models.TrackKindMIDI,
			Volume: 1.0,
		}
		s.tracks[trackID] = t
	}
	set(t)
	t.LastUpdated = s.touchLocked()
	return nil
}

// ApplyRegionField creates the region on first reference and sets one field.
// Setting "track" re-parents the region even if the track id is not yet
// known; the relation reconciles when the track's own events arrive.
func (s *Store) ApplyRegionField(regionID, field string, value any) error {
	set, err := regionSetter(field, value)
	if err != nil {
		return s.fieldError("region", field, value, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.regions[regionID]
	if !ok {
		r = &models.Region{ID: regionID}
		s.regions[regionID] = r
	}
	set(r)
	r.LastUpdated = s.touchLocked()
	return nil
}

// ApplySelectionField lazily creates the session selection on first call and
// sets one field. Start and end may arrive in either order.
func (s *Store) ApplySelectionField(field string, value any) error {
	set, err := selectionSetter(field, value)
	if err != nil {
		return s.fieldError("selection", field, value, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selection == nil {
		s.selection = &models.Selection{}
	}
	set(s.selection)
	s.touchLocked()
	return nil
}

// ApplyProjectField sets a project-level field: name, tempo, time signature
// or sample rate.
func (s *Store) ApplyProjectField(field string, value any) error {
	set, err := s.projectSetter(field, value)
	if err != nil {
		return s.fieldError("project", field, value, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	set()
	s.touchLocked()
	return nil
}

// AppendNote records a note event on the project's bounded recent history.
func (s *Store) AppendNote(ev models.NoteEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.recent) == s.recentCap {
		copy(s.recent, s.recent[1:])
		s.recent = s.recent[:len(s.recent)-1]
	}
	s.recent = append(s.recent, ev)
	s.touchLocked()
}

// Tempo returns the current session tempo in BPM. This is the one value the
// playback side shares with ingestion.
func (s *Store) Tempo() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tempo
}

// Snapshot returns an immutable point-in-time deep copy of the project
// state. Writers are only blocked for the duration of the copy.
func (s *Store) Snapshot() models.ProjectState {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := models.ProjectState{
		Name:          s.name,
		Tempo:         s.tempo,
		TimeSignature: s.timeSig,
		SampleRate:    s.sampleRate,
		LastUpdated:   s.lastUpdated,
	}

	snap.Tracks = make([]models.Track, 0, len(s.tracks))
	for _, t := range s.tracks {
		snap.Tracks = append(snap.Tracks, *t)
	}
	sort.Slice(snap.Tracks, func(i, j int) bool { return snap.Tracks[i].ID < snap.Tracks[j].ID })

	snap.Regions = make([]models.Region, 0, len(s.regions))
	for _, r := range s.regions {
		snap.Regions = append(snap.Regions, *r)
	}
	sort.Slice(snap.Regions, func(i, j int) bool { return snap.Regions[i].ID < snap.Regions[j].ID })

	if s.selection != nil {
		sel := models.Selection{
			Start:     s.selection.Start,
			End:       s.selection.End,
			TrackIDs:  append([]string(nil), s.selection.TrackIDs...),
			RegionIDs: append([]string(nil), s.selection.RegionIDs...),
		}
		snap.Selection = &sel
	}

	snap.RecentNotes = append([]models.NoteEvent(nil), s.recent...)
	return snap
}

// UnknownFieldCount reports how many apply calls named a field no setter
// exists for.
func (s *Store) UnknownFieldCount() uint64 { return s.unknownFields.Load() }

// touchLocked bumps the aggregate timestamp, keeping it monotonically
// non-decreasing even if the wall clock steps backwards.
func (s *Store) touchLocked() time.Time {
	ts := s.now()
	if ts.Before(s.lastUpdated) {
		ts = s.lastUpdated
	}
	s.lastUpdated = ts
	return ts
}

func (s *Store) fieldError(entity, field string, value any, err error) error {
	if errors.Is(err, errUnknownField) {
		s.unknownFields.Add(1)
		s.logger.DPanic("state: unknown field",
			zap.String("entity", entity),
			zap.String("field", field))
		return nil
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr
	}
	return &ValidationError{Entity: entity, Field: field, Value: value, Reason: err.Error()}
}

func trackSetter(field string, value any) (func(*models.Track), error) {
	switch field {
	case "name":
		v, ok := asString(value)
		if !ok {
			return nil, &ValidationError{Entity: "track", Field: field, Value: value, Reason: "want string"}
		}
		return func(t *models.Track) { t.Name = v }, nil
	case "kind":
		v, ok := asString(value)
		if !ok {
			return nil, &ValidationError{Entity: "track", Field: field, Value: value, Reason: "want string"}
		}
		kind := models.TrackKind(v)
		switch kind {
		case models.TrackKindAudio, models.TrackKindMIDI, models.TrackKindBus:
		default:
			return nil, &ValidationError{Entity: "track", Field: field, Value: value, Reason: "want audio, midi or bus"}
		}
		return func(t *models.Track) { t.Kind = kind }, nil
	case "armed":
		v, ok := asBool(value)
		if !ok {
			return nil, &ValidationError{Entity: "track", Field: field, Value: value, Reason: "want bool"}
		}
		return func(t *models.Track) { t.Armed = v }, nil
	case "muted":
		v, ok := asBool(value)
		if !ok {
			return nil, &ValidationError{Entity: "track", Field: field, Value: value, Reason: "want bool"}
		}
		return func(t *models.Track) { t.Muted = v }, nil
	case "solo":
		v, ok := asBool(value)
		if !ok {
			return nil, &ValidationError{Entity: "track", Field: field, Value: value, Reason: "want bool"}
		}
		return func(t *models.Track) { t.Solo = v }, nil
	case "volume":
		v, ok := asFloat(value)
		if !ok || v < 0 {
			return nil, &ValidationError{Entity: "track", Field: field, Value: value, Reason: "want float >= 0"}
		}
		return func(t *models.Track) { t.Volume = v }, nil
	case "pan":
		v, ok := asFloat(value)
		if !ok || v < -1 || v > 1 {
			return nil, &ValidationError{Entity: "track", Field: field, Value: value, Reason: "want float in [-1, 1]"}
		}
		return func(t *models.Track) { t.Pan = v }, nil
	default:
		return nil, errUnknownField
	}
}

func regionSetter(field string, value any) (func(*models.Region), error) {
	switch field {
	case "name":
		v, ok := asString(value)
		if !ok {
			return nil, &ValidationError{Entity: "region", Field: field, Value: value, Reason: "want string"}
		}
		return func(r *models.Region) { r.Name = v }, nil
	case "track":
		v, ok := asString(value)
		if !ok {
			return nil, &ValidationError{Entity: "region", Field: field, Value: value, Reason: "want string"}
		}
		return func(r *models.Region) { r.TrackID = v }, nil
	case "start":
		v, ok := asFloat(value)
		if !ok {
			return nil, &ValidationError{Entity: "region", Field: field, Value: value, Reason: "want float"}
		}
		return func(r *models.Region) { r.Start = v }, nil
	case "length":
		v, ok := asFloat(value)
		if !ok || v < 0 {
			return nil, &ValidationError{Entity: "region", Field: field, Value: value, Reason: "want float >= 0"}
		}
		return func(r *models.Region) { r.Length = v }, nil
	case "position":
		v, ok := asFloat(value)
		if !ok {
			return nil, &ValidationError{Entity: "region", Field: field, Value: value, Reason: "want float"}
		}
		return func(r *models.Region) { r.Position = v }, nil
	case "selected":
		v, ok := asBool(value)
		if !ok {
			return nil, &ValidationError{Entity: "region", Field: field, Value: value, Reason: "want bool"}
		}
		return func(r *models.Region) { r.Selected = v }, nil
	case "muted":
		v, ok := asBool(value)
		if !ok {
			return nil, &ValidationError{Entity: "region", Field: field, Value: value, Reason: "want bool"}
		}
		return func(r *models.Region) { r.Muted = v }, nil
	default:
		return nil, errUnknownField
	}
}

func selectionSetter(field string, value any) (func(*models.Selection), error) {
	switch field {
	case "start":
		v, ok := asFloat(value)
		if !ok {
			return nil, &ValidationError{Entity: "selection", Field: field, Value: value, Reason: "want float"}
		}
		return func(sel *models.Selection) { sel.Start = v }, nil
	case "end":
		v, ok := asFloat(value)
		if !ok {
			return nil, &ValidationError{Entity: "selection", Field: field, Value: value, Reason: "want float"}
		}
		return func(sel *models.Selection) { sel.End = v }, nil
	case "tracks":
		v, ok := asStringSlice(value)
		if !ok {
			return nil, &ValidationError{Entity: "selection", Field: field, Value: value, Reason: "want string list"}
		}
		return func(sel *models.Selection) { sel.TrackIDs = v }, nil
	case "regions":
		v, ok := asStringSlice(value)
		if !ok {
			return nil, &ValidationError{Entity: "selection", Field: field, Value: value, Reason: "want string list"}
		}
		return func(sel *models.Selection) { sel.RegionIDs = v }, nil
	default:
		return nil, errUnknownField
	}
}

func (s *Store) projectSetter(field string, value any) (func(), error) {
	switch field {
	case "name":
		v, ok := asString(value)
		if !ok {
			return nil, &ValidationError{Entity: "project", Field: field, Value: value, Reason: "want string"}
		}
		return func() { s.name = v }, nil
	case "tempo":
		v, ok := asFloat(value)
		if !ok || v <= 0 || v > 1000 {
			return nil, &ValidationError{Entity: "project", Field: field, Value: value, Reason: "want BPM in (0, 1000]"}
		}
		return func() { s.tempo = v }, nil
	case "timesig":
		num, den, ok := asTimeSignature(value)
		if !ok {
			return nil, &ValidationError{Entity: "project", Field: field, Value: value, Reason: `want "N/D"`}
		}
		return func() { s.timeSig = models.TimeSignature{Numerator: num, Denominator: den} }, nil
	case "samplerate":
		v, ok := asFloat(value)
		if !ok || v < 8000 || v > 192000 {
			return nil, &ValidationError{Entity: "project", Field: field, Value: value, Reason: "want rate in [8000, 192000]"}
		}
		return func() { s.sampleRate = int(v) }, nil
	default:
		return nil, errUnknownField
	}
}
