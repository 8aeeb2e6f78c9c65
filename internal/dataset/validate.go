// Package dataset audits training data folders before they reach the
// data quality gate: structural checks on JSON/JSONL files, duplicate
// detection, and train/eval leakage detection.
package dataset

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// compatible data file extensions
var dataExtensions = map[string]bool{
	".json":  true,
	".jsonl": true,
	".txt":   true,
	".csv":   true,
}

// evalMarkers in a file name assign its examples to the eval split.
var evalMarkers = []string{"eval", "test", "holdout"}

// Example is one instruction-tuning record.
type Example struct {
	Instruction string `json:"instruction"`
	Input       string `json:"input,omitempty"`
	Output      string `json:"output,omitempty"`
	Response    string `json:"response,omitempty"`
}

// Report is the outcome of auditing one dataset folder.
type Report struct {
	Files         int      `json:"files"`
	SizeBytes     int64    `json:"size_bytes"`
	Format        string   `json:"format,omitempty"` // dominant file format
	SampleCount   int      `json:"sample_count"`
	TokenEstimate int      `json:"token_estimate"`
	Coverage      float64  `json:"coverage"`       // % of examples with instruction and output
	DuplicateRate float64  `json:"duplicate_rate"` // % of examples duplicating an earlier one
	FormatErrors  []string `json:"format_errors,omitempty"`
	LeakedPairs   []string `json:"leaked_pairs,omitempty"` // examples present in both splits
	Warnings      []string `json:"warnings,omitempty"`
	Readiness     string   `json:"readiness"` // "excellent", "fair", "needs_work"
}

// HasHardErrors reports whether the audit found anything that should fail
// a validation run (format errors or train/eval leakage).
func (r *Report) HasHardErrors() bool {
	return len(r.FormatErrors) > 0 || len(r.LeakedPairs) > 0
}

// Validate audits every compatible data file under dir.
func Validate(dir string) (*Report, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("dataset path %s: %w", dir, err)
	}

	var files []string
	var sizeBytes int64
	extCounts := make(map[string]int)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && dataExtensions[filepath.Ext(path)] {
			files = append(files, path)
			extCounts[filepath.Ext(path)]++
			if info, err := d.Info(); err == nil {
				sizeBytes += info.Size()
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	r := &Report{Files: len(files), SizeBytes: sizeBytes, Format: dominantFormat(extCounts)}
	if len(files) == 0 {
		r.Warnings = append(r.Warnings, "no compatible data files (.json, .jsonl, .txt, .csv) found")
		r.Readiness = "needs_work"
		return r, nil
	}

	seenTrain := make(map[string]bool) // normalized example -> seen in train split
	seenEval := make(map[string]bool)
	dupes := 0
	covered := 0

	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			r.FormatErrors = append(r.FormatErrors, fmt.Sprintf("%s: read error: %v", filepath.Base(path), err))
			continue
		}
		content := string(data)
		base := filepath.Base(path)
		eval := isEvalFile(base)

		switch filepath.Ext(path) {
		case ".json", ".jsonl":
			examples, errs := parseExamples(base, content, filepath.Ext(path) == ".jsonl")
			r.FormatErrors = append(r.FormatErrors, errs...)
			for _, ex := range examples {
				r.SampleCount++
				r.TokenEstimate += estimateTokens(ex)
				if ex.Instruction != "" && (ex.Output != "" || ex.Response != "") {
					covered++
				}
				key := normalize(ex.Instruction + "\x00" + ex.Output + ex.Response)
				if eval {
					if seenTrain[key] {
						r.LeakedPairs = append(r.LeakedPairs, fmt.Sprintf("%s: example also present in train split", base))
					}
					if seenEval[key] {
						dupes++
					}
					seenEval[key] = true
				} else {
					if seenEval[key] {
						r.LeakedPairs = append(r.LeakedPairs, fmt.Sprintf("%s: example also present in eval split", base))
					}
					if seenTrain[key] {
						dupes++
					}
					seenTrain[key] = true
				}
			}
		default:
			// Plain text: lines as rough examples, no structural checks.
			lines := nonEmptyLines(content)
			r.SampleCount += len(lines)
			covered += len(lines)
			r.TokenEstimate += int(float64(len(strings.Fields(content))) * 1.3)
		}
	}

	if r.SampleCount > 0 {
		r.Coverage = 100 * float64(covered) / float64(r.SampleCount)
		r.DuplicateRate = 100 * float64(dupes) / float64(r.SampleCount)
	}
	if r.DuplicateRate > 5 {
		r.Warnings = append(r.Warnings, fmt.Sprintf("duplicate rate %.1f%% exceeds 5%%", r.DuplicateRate))
	}
	r.Readiness = readiness(r)
	return r, nil
}

// dominantFormat returns the most common data file extension, without the
// dot. Ties break toward the alphabetically first extension.
func dominantFormat(extCounts map[string]int) string {
	best := ""
	for ext, n := range extCounts {
		if best == "" || n > extCounts[best] || (n == extCounts[best] && ext < best) {
			best = ext
		}
	}
	return strings.TrimPrefix(best, ".")
}

// parseExamples decodes a JSON or JSONL file into examples, collecting
// structural errors without aborting the audit.
func parseExamples(base, content string, jsonl bool) ([]Example, []string) {
	var examples []Example
	var errs []string

	record := func(raw json.RawMessage, pos int) {
		var ex Example
		if err := json.Unmarshal(raw, &ex); err != nil {
			errs = append(errs, fmt.Sprintf("%s (item %d): not an object", base, pos))
			return
		}
		if ex.Output == "" && ex.Response == "" {
			errs = append(errs, fmt.Sprintf("%s (item %d): missing output field", base, pos))
		}
		examples = append(examples, ex)
	}

	if jsonl {
		for i, line := range strings.Split(content, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if !json.Valid([]byte(line)) {
				errs = append(errs, fmt.Sprintf("%s (line %d): invalid JSON", base, i+1))
				continue
			}
			record(json.RawMessage(line), i+1)
		}
		return examples, errs
	}

	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		// A single object is tolerated; anything else is a format error.
		var single json.RawMessage
		if json.Unmarshal([]byte(content), &single) == nil && strings.HasPrefix(strings.TrimSpace(content), "{") {
			record(single, 0)
			return examples, errs
		}
		errs = append(errs, fmt.Sprintf("%s: root element must be a list", base))
		return examples, errs
	}
	for i, item := range raw {
		record(item, i)
	}
	return examples, errs
}

func isEvalFile(name string) bool {
	lower := strings.ToLower(name)
	for _, m := range evalMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// estimateTokens approximates the token count of one example at ~1.3
// tokens per word.
func estimateTokens(ex Example) int {
	words := len(strings.Fields(ex.Instruction)) + len(strings.Fields(ex.Input)) +
		len(strings.Fields(ex.Output)) + len(strings.Fields(ex.Response))
	return int(float64(words) * 1.3)
}

func nonEmptyLines(content string) []string {
	var out []string
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

func readiness(r *Report) string {
	score := 0
	if r.SampleCount > 10 {
		score++
	}
	if r.SampleCount > 100 {
		score++
	}
	if r.TokenEstimate > 10_000 {
		score++
	}
	if !r.HasHardErrors() {
		score++
	}
	switch {
	case score >= 4:
		return "excellent"
	case score >= 2:
		return "fair"
	default:
		return "needs_work"
	}
}
