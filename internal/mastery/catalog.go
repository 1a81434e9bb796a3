package mastery

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	yaml "gopkg.in/yaml.v3"
)

//go:embed ranks.yaml
var catalogFiles embed.FS

// ErrInvalidRank is returned by Display for a rank outside the ladder.
// Display never clamps; out-of-range input at this stage is a caller bug.
var ErrInvalidRank = errors.New("mastery rank out of range")

type catalogEntry struct {
	ID int    `yaml:"id"`
	En string `yaml:"en"`
	Ru string `yaml:"ru"`
}

type catalogFile struct {
	Levels   []catalogEntry `yaml:"levels"`
	SubRanks []catalogEntry `yaml:"sub_ranks"`
}

var (
	catalogOnce sync.Once
	catalogErr  error
	levelNames  map[int]catalogEntry
	subNames    map[int]catalogEntry
)

func loadCatalog() error {
	catalogOnce.Do(func() {
		raw, err := fs.ReadFile(catalogFiles, "ranks.yaml")
		if err != nil {
			catalogErr = fmt.Errorf("read embedded rank catalog: %w", err)
			return
		}
		var file catalogFile
		if err := yaml.Unmarshal(raw, &file); err != nil {
			catalogErr = fmt.Errorf("parse rank catalog: %w", err)
			return
		}
		levelNames = make(map[int]catalogEntry, len(file.Levels))
		for _, e := range file.Levels {
			levelNames[e.ID] = e
		}
		subNames = make(map[int]catalogEntry, len(file.SubRanks))
		for _, e := range file.SubRanks {
			subNames[e.ID] = e
		}
		if len(levelNames) != MaxLevel || len(subNames) != MaxSubRank {
			catalogErr = fmt.Errorf("rank catalog incomplete: %d levels, %d sub-ranks", len(levelNames), len(subNames))
		}
	})
	return catalogErr
}

// Display renders "LevelName — SubRankName" in the requested language
// ("en" or "ru"; anything else falls back to English).
func Display(r Rank, lang string) (string, error) {
	if err := loadCatalog(); err != nil {
		return "", err
	}
	if !valid(r) {
		return "", fmt.Errorf("%w: level=%d sub_rank=%d", ErrInvalidRank, r.Level, r.SubRank)
	}
	level := levelNames[r.Level]
	sub := subNames[r.SubRank]
	if strings.EqualFold(strings.TrimSpace(lang), "ru") {
		return level.Ru + " — " + sub.Ru, nil
	}
	return level.En + " — " + sub.En, nil
}
