package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/illegalcall/match-master/internal/models"
)

// FileStore persists one JSON document per entity on the local filesystem:
// profiles/<id>.json, matches/<id>.json. An exclusive-create index file per
// canonical pair (matches/pairs/<min>__<max>.json) guarantees at most one
// match per unordered pair even across processes.
type FileStore struct {
	profilesDir string
	matchesDir  string
	pairsDir    string
	locks       *keyedMutex
}

// NewFileStore creates the data directories if needed.
func NewFileStore(dataDir string) (*FileStore, error) {
	s := &FileStore{
		profilesDir: filepath.Join(dataDir, "profiles"),
		matchesDir:  filepath.Join(dataDir, "matches"),
		pairsDir:    filepath.Join(dataDir, "matches", "pairs"),
		locks:       newKeyedMutex(),
	}
	for _, dir := range []string{s.profilesDir, s.matchesDir, s.pairsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	return s, nil
}

func (s *FileStore) profilePath(id string) string {
	return filepath.Join(s.profilesDir, id+".json")
}

func (s *FileStore) matchPath(id string) string {
	return filepath.Join(s.matchesDir, id+".json")
}

func (s *FileStore) pairPath(key string) string {
	return filepath.Join(s.pairsDir, key+".json")
}

func (s *FileStore) SaveProfile(ctx context.Context, p *models.Profile) error {
	unlock := s.locks.Lock("profile/" + p.ID)
	defer unlock()
	return writeJSON(s.profilesDir, s.profilePath(p.ID), p)
}

func (s *FileStore) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	var p models.Profile
	if err := readJSON(s.profilePath(id), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *FileStore) ListProfiles(ctx context.Context) ([]*models.Profile, error) {
	entries, err := os.ReadDir(s.profilesDir)
	if err != nil {
		return nil, storageErr("list profiles", err)
	}
	profiles := make([]*models.Profile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		var p models.Profile
		if err := readJSON(filepath.Join(s.profilesDir, entry.Name()), &p); err != nil {
			if errors.Is(err, ErrNotFound) {
				// removed between the directory scan and the read
				continue
			}
			return nil, err
		}
		profiles = append(profiles, &p)
	}
	return profiles, nil
}

func (s *FileStore) DeleteProfile(ctx context.Context, id string) error {
	unlock := s.locks.Lock("profile/" + id)
	defer unlock()
	if err := os.Remove(s.profilePath(id)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return storageErr("delete profile", err)
	}
	return nil
}

func (s *FileStore) UpdateProfile(ctx context.Context, id string, mutate func(*models.Profile) error) (*models.Profile, error) {
	unlock := s.locks.Lock("profile/" + id)
	defer unlock()

	var p models.Profile
	if err := readJSON(s.profilePath(id), &p); err != nil {
		return nil, err
	}
	if err := mutate(&p); err != nil {
		return nil, err
	}
	if err := writeJSON(s.profilesDir, s.profilePath(id), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *FileStore) CreateMatch(ctx context.Context, m *models.Match) (*models.Match, bool, error) {
	pairKey := models.PairKey(m.Profile1ID, m.Profile2ID)
	unlock := s.locks.Lock("pair/" + pairKey)
	defer unlock()

	if existing, err := s.matchForPair(ctx, pairKey); err != nil {
		return nil, false, err
	} else if existing != nil {
		return existing, false, nil
	}

	// Persist the match record first; it is unreachable until the pair claim
	// below succeeds.
	if err := writeJSON(s.matchesDir, s.matchPath(m.ID), m); err != nil {
		return nil, false, err
	}

	f, err := os.OpenFile(s.pairPath(pairKey), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if errors.Is(err, fs.ErrExist) {
		// Another process claimed the pair between our read and the claim.
		_ = os.Remove(s.matchPath(m.ID))
		existing, lookupErr := s.matchForPair(ctx, pairKey)
		if lookupErr != nil {
			return nil, false, lookupErr
		}
		if existing == nil {
			return nil, false, storageErr("create match", fmt.Errorf("pair %s claimed but match record missing", pairKey))
		}
		return existing, false, nil
	}
	if err != nil {
		_ = os.Remove(s.matchPath(m.ID))
		return nil, false, storageErr("create match", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(map[string]string{"match_id": m.ID}); err != nil {
		return nil, false, storageErr("create match", err)
	}
	return m, true, nil
}

// matchForPair resolves the pair index file to its match record, or nil when
// the pair has never matched.
func (s *FileStore) matchForPair(ctx context.Context, pairKey string) (*models.Match, error) {
	var ref struct {
		MatchID string `json:"match_id"`
	}
	err := readJSON(s.pairPath(pairKey), &ref)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if ref.MatchID == "" {
		return nil, nil
	}
	m, err := s.GetMatch(ctx, ref.MatchID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return m, err
}

func (s *FileStore) GetMatch(ctx context.Context, id string) (*models.Match, error) {
	var m models.Match
	if err := readJSON(s.matchPath(id), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *FileStore) ListMatches(ctx context.Context) ([]*models.Match, error) {
	entries, err := os.ReadDir(s.matchesDir)
	if err != nil {
		return nil, storageErr("list matches", err)
	}
	matches := make([]*models.Match, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		var m models.Match
		if err := readJSON(filepath.Join(s.matchesDir, entry.Name()), &m); err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		matches = append(matches, &m)
	}
	return matches, nil
}

// MatchesForProfile scans every match and filters by pair membership: O(n)
// per call.
func (s *FileStore) MatchesForProfile(ctx context.Context, profileID string) ([]*models.Match, error) {
	all, err := s.ListMatches(ctx)
	if err != nil {
		return nil, err
	}
	matches := make([]*models.Match, 0)
	for _, m := range all {
		if m.Involves(profileID) {
			matches = append(matches, m)
		}
	}
	return matches, nil
}

func (s *FileStore) UpdateMatch(ctx context.Context, id string, mutate func(*models.Match) error) (*models.Match, error) {
	unlock := s.locks.Lock("match/" + id)
	defer unlock()

	var m models.Match
	if err := readJSON(s.matchPath(id), &m); err != nil {
		return nil, err
	}
	if err := mutate(&m); err != nil {
		return nil, err
	}
	if err := writeJSON(s.matchesDir, s.matchPath(id), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *FileStore) Close() error { return nil }

// writeJSON writes the document atomically: marshal to a temp file in the
// same directory, then rename over the target. Readers never observe a
// partial write.
func writeJSON(dir, path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return storageErr("encode", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return storageErr("write", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return storageErr("write", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return storageErr("write", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return storageErr("write", err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return storageErr("read", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return storageErr("decode", err)
	}
	return nil
}
