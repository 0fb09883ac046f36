package runner

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"chessbench/internal/logging"
	"chessbench/internal/types"
)

// resumeTarget locates the run directory to continue. With an explicit id
// the directory must exist and carry the same config hash. With bare
// resume=true the newest matching directory wins; none matching means a
// fresh run.
func resumeTarget(outputDir, experimentName, configHash, resumeRunID string) (string, error) {
	if resumeRunID != "" {
		dir := filepath.Join(outputDir, resumeRunID)
		hash, err := readRunHash(dir)
		if err != nil {
			return "", fmt.Errorf("resume_run_id %s: %w", resumeRunID, err)
		}
		if hash != configHash {
			return "", fmt.Errorf("resume_run_id %s: config hash mismatch (run %s, current %s)",
				resumeRunID, short(hash), short(configHash))
		}
		return dir, nil
	}

	entries, err := os.ReadDir(outputDir)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("scanning %s: %w", outputDir, err)
	}

	type candidate struct {
		dir  string
		name string
	}
	var candidates []candidate
	prefix := experimentName + "-"
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		dir := filepath.Join(outputDir, e.Name())
		if hash, err := readRunHash(dir); err == nil && hash == configHash {
			candidates = append(candidates, candidate{dir: dir, name: e.Name()})
		}
	}
	if len(candidates) == 0 {
		return "", nil
	}
	// Run ids embed a UTC timestamp, so name order is creation order.
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].name > candidates[j].name })
	return candidates[0].dir, nil
}

func readRunHash(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, "config_hash.txt"))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func short(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}

// loadExistingGames reads the games directory of a resumed run, deduplicating
// by game number with the latest file mtime winning, and returns the records
// ordered by game number.
func loadExistingGames(runDir string) ([]types.GameRecord, error) {
	gamesDir := filepath.Join(runDir, "games")
	entries, err := os.ReadDir(gamesDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", gamesDir, err)
	}

	type loaded struct {
		rec   types.GameRecord
		mtime int64
	}
	byNumber := make(map[int]loaded)
	for _, e := range entries {
		n, ok := gameNumberFromName(e.Name())
		if !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(gamesDir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		var rec types.GameRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			logging.Get(logging.CategoryRun).Warn("skipping corrupt game file %s: %v", path, err)
			continue
		}
		if rec.GameNumber == 0 {
			rec.GameNumber = n
		}
		prev, seen := byNumber[rec.GameNumber]
		if !seen || info.ModTime().UnixNano() > prev.mtime {
			byNumber[rec.GameNumber] = loaded{rec: rec, mtime: info.ModTime().UnixNano()}
		}
	}

	numbers := make([]int, 0, len(byNumber))
	for n := range byNumber {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	out := make([]types.GameRecord, 0, len(numbers))
	for _, n := range numbers {
		out = append(out, byNumber[n].rec)
	}
	return out, nil
}
