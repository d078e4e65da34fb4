package session

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"ultraflow/internal/models"
)

// promptDateLayout matches the AAA prompt file timestamp,
// e.g. "21/01/2020 02:15:07 PM".
const promptDateLayout = "02/01/2006 03:04:05 PM"

// Discoverer scans data directories for recording sessions. The logger is
// an explicit collaborator so callers control where missing-file warnings
// end up; a nil logger suppresses them.
type Discoverer struct {
	logger *log.Logger
}

// NewDiscoverer creates a discoverer reporting through the given logger.
func NewDiscoverer(logger *log.Logger) *Discoverer {
	return &Discoverer{logger: logger}
}

// ReadPrompt parses a prompt file: line 1 is the prompt text, line 2 the
// recording timestamp, line 3 a comma-separated record whose first field
// is the participant identifier.
func ReadPrompt(path string) (prompt string, date time.Time, participant string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", time.Time{}, "", fmt.Errorf("failed to read prompt file: %w", err)
	}

	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	if len(lines) < 3 {
		return "", time.Time{}, "", fmt.Errorf("prompt file %s: expected at least 3 lines, got %d", path, len(lines))
	}

	prompt = lines[0]
	date, err = time.Parse(promptDateLayout, strings.TrimSpace(lines[1]))
	if err != nil {
		return "", time.Time{}, "", fmt.Errorf("prompt file %s: bad timestamp: %w", path, err)
	}
	participant = strings.Split(lines[2], ",")[0]

	return prompt, date, participant, nil
}

// Discover scans a directory for recording sessions and returns their
// descriptors sorted by ascending recording date.
//
// Discovery works from the prompt files: every *.txt file that is not a
// *US.txt metadata file names one session. For each session the expected
// companion files (<base>US.txt, <base>.wav, <base>.ult) are checked for
// existence; a session with any companion missing is marked excluded and
// each missing file is logged as a warning. Excluded sessions are still
// returned so callers can report them.
func (d *Discoverer) Discover(dir string) ([]models.Session, error) {
	metaFiles, err := filepath.Glob(filepath.Join(dir, "*US.txt"))
	if err != nil {
		return nil, fmt.Errorf("failed to list metadata files: %w", err)
	}
	sort.Strings(metaFiles)

	allTxt, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil {
		return nil, fmt.Errorf("failed to list prompt files: %w", err)
	}

	// *US.txt matches *.txt as well, so subtract the metadata files to
	// avoid counting them as prompts.
	isMeta := make(map[string]bool, len(metaFiles))
	for _, mf := range metaFiles {
		isMeta[mf] = true
	}
	var promptFiles []string
	for _, pf := range allTxt {
		if !isMeta[pf] {
			promptFiles = append(promptFiles, pf)
		}
	}
	sort.Strings(promptFiles)

	sessions := make([]models.Session, 0, len(promptFiles))
	for _, promptFile := range promptFiles {
		base := strings.TrimSuffix(promptFile, filepath.Ext(promptFile))

		prompt, date, participant, err := ReadPrompt(promptFile)
		if err != nil {
			return nil, err
		}

		s := models.Session{
			FileBase:    base,
			PromptFile:  promptFile,
			Prompt:      prompt,
			Date:        date,
			Participant: participant,
			MetaFile:    base + "US.txt",
			WavFile:     base + ".wav",
			UltFile:     base + ".ult",
		}

		s.MetaExists = d.checkCompanion(s.MetaFile)
		s.WavExists = d.checkCompanion(s.WavFile)
		s.UltExists = d.checkCompanion(s.UltFile)
		s.Excluded = !(s.MetaExists && s.WavExists && s.UltExists)

		sessions = append(sessions, s)
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].Date.Before(sessions[j].Date)
	})

	return sessions, nil
}

// checkCompanion tests whether a companion file exists as a regular file,
// logging a warning when it does not.
func (d *Discoverer) checkCompanion(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		if d.logger != nil {
			d.logger.Printf("Note: %s does not exist.", path)
		}
		return false
	}
	return true
}
