// Package linecount measures the size of a checkout in lines of code,
// the figure sent with every artifact.
package linecount

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/boyter/scc/v3/processor"
)

var skipDirs = map[string]bool{
	"vendor":       true,
	"node_modules": true,
	"target":       true,
	"__pycache__":  true,
}

var loadLanguages sync.Once

// Stats is the result of a count. Only files with a recognized language
// are counted.
type Stats struct {
	Files    int
	Code     int
	Comments int
	Blanks   int
	// ByLanguage holds code lines per language.
	ByLanguage map[string]int
	// Skipped lists files that could not be read.
	Skipped []string
}

// Count walks root and classifies every line of every recognized source
// file. Hidden directories and dependency directories are not entered.
func Count(root string) (Stats, error) {
	loadLanguages.Do(processor.ProcessConstants)

	stats := Stats{ByLanguage: map[string]int{}}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			stats.Skipped = append(stats.Skipped, path)
			return nil
		}
		if d.IsDir() {
			if path != root && (strings.HasPrefix(d.Name(), ".") || skipDirs[d.Name()]) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		candidates, _ := processor.DetectLanguage(d.Name())
		if len(candidates) == 0 {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			stats.Skipped = append(stats.Skipped, path)
			return nil
		}
		job := &processor.FileJob{
			Filename: d.Name(),
			Location: path,
			Language: candidates[0],
			Content:  content,
			Bytes:    int64(len(content)),
		}
		if len(candidates) > 1 {
			job.Language = processor.DetermineLanguage(d.Name(), candidates[0], candidates, content)
		}
		processor.CountStats(job)

		stats.Files++
		stats.Code += int(job.Code)
		stats.Comments += int(job.Comment)
		stats.Blanks += int(job.Blank)
		stats.ByLanguage[job.Language] += int(job.Code)
		return nil
	})
	return stats, err
}
