// Package session discovers ultrasound recording sessions in a data
// directory and parses their prompt and metadata companion files.
package session

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"ultraflow/internal/models"
)

// Metadata keys consumed by the processing pipeline.
const (
	keyNumVectors   = "NumVectors"
	keyPixPerVector = "PixPerVector"
	keyPixelsPerMm  = "PixelsPerMm"
	keyFramesPerSec = "FramesPerSec"
	keyFirstFrame   = "TimeInSecsOfFirstFrame"
)

// ParseMetadataFile reads an AAA ultrasound metadata file and returns the
// full key to value mapping. Each line must hold exactly one key=value
// pair; values are parsed as integers first, falling back to floating
// point. Any other shape is a parse error naming the offending line.
func ParseMetadataFile(path string) (map[string]float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata file: %w", err)
	}
	defer file.Close()

	fields := make(map[string]float64)
	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}

		parts := strings.Split(line, "=")
		if len(parts) != 2 {
			return nil, fmt.Errorf("metadata line %d: expected key=value, got %q", lineNo, line)
		}
		key := strings.TrimSpace(parts[0])
		valueStr := strings.TrimSpace(parts[1])

		// Integer first, float fallback, matching the AAA export
		// convention of mixing both in one file.
		if intVal, err := strconv.Atoi(valueStr); err == nil {
			fields[key] = float64(intVal)
			continue
		}
		floatVal, err := strconv.ParseFloat(valueStr, 64)
		if err != nil {
			return nil, fmt.Errorf("metadata line %d: value %q is neither integer nor float", lineNo, valueStr)
		}
		fields[key] = floatVal
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read metadata file: %w", err)
	}

	return fields, nil
}

// ReadMetadata parses a metadata file and extracts the fields the
// pipeline needs into a typed record. A missing required key is an error.
func ReadMetadata(path string) (*models.Metadata, error) {
	fields, err := ParseMetadataFile(path)
	if err != nil {
		return nil, err
	}

	required := []string{keyNumVectors, keyPixPerVector, keyPixelsPerMm, keyFramesPerSec, keyFirstFrame}
	for _, key := range required {
		if _, ok := fields[key]; !ok {
			return nil, fmt.Errorf("metadata file %s: missing required key %q", path, key)
		}
	}

	return &models.Metadata{
		NumVectors:             int(fields[keyNumVectors]),
		PixPerVector:           int(fields[keyPixPerVector]),
		PixelsPerMm:            fields[keyPixelsPerMm],
		FramesPerSec:           fields[keyFramesPerSec],
		TimeInSecsOfFirstFrame: fields[keyFirstFrame],
		Fields:                 fields,
	}, nil
}
