// Package gates evaluates quality gates against a project's on-disk
// artifacts. Evaluation is read-only and idempotent: the same artifact
// contents always produce the same blockers, warnings, and metrics.
package gates

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrUnknownGate is returned for gate ids not in the registry.
var ErrUnknownGate = fmt.Errorf("unknown gate")

// Threshold compares an extracted metric against a declared value.
// A metric that cannot be extracted compares as 0 unless Optional is set,
// in which case its absence is a warning and the comparison is skipped.
type Threshold struct {
	Metric   string
	Artifact string // file scanned for the metric
	Op       string // ">=", "<=", "=="
	Value    float64
	Optional bool
}

// Keyword requires (or recommends) a case-insensitive substring in a file.
type Keyword struct {
	Artifact string
	Word     string
	Blocker  bool
	Message  string
}

// Rule is the declarative check set for one gate.
type Rule struct {
	Gate       string
	Artifacts  []string // required files or directories, project-relative
	Keywords   []Keyword
	Thresholds []Threshold
	Inspect    func(a *ArtifactSet, r *Result) // bespoke extra checks, may be nil
}

// ArtifactSet holds the loaded contents of a rule's required artifacts.
type ArtifactSet struct {
	Root  string
	texts map[string]string // path -> file content ("" for directories)
}

// Text returns the raw content of a loaded file artifact.
func (a *ArtifactSet) Text(path string) string {
	return a.texts[path]
}

// DirEntries lists the entries of a directory artifact.
func (a *ArtifactSet) DirEntries(path string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(a.Root, path))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

// Evaluator runs gate rules against one project directory. Threshold
// overrides come from project config; they are policy knobs, not schema.
type Evaluator struct {
	root      string
	overrides map[string]map[string]float64 // gate -> metric -> value
}

// NewEvaluator creates an Evaluator rooted at the project directory.
func NewEvaluator(root string) *Evaluator {
	return &Evaluator{root: root, overrides: make(map[string]map[string]float64)}
}

// SetOverrides replaces the per-gate threshold overrides.
func (e *Evaluator) SetOverrides(o map[string]map[string]float64) {
	if o == nil {
		o = make(map[string]map[string]float64)
	}
	e.overrides = o
}

// Gates returns all registered gate ids, sorted.
func Gates() []string {
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Evaluate runs the rule for one gate id.
func (e *Evaluator) Evaluate(gateID string) (*Result, error) {
	rule, ok := registry[gateID]
	if !ok {
		return nil, fmt.Errorf("gate %q: %w", gateID, ErrUnknownGate)
	}

	res := &Result{
		Gate:      gateID,
		Metrics:   make(map[string]float64),
		CheckedAt: time.Now().UTC().Format(time.RFC3339),
	}

	// Load required artifacts. Missing ones are blockers, and content
	// checks are skipped entirely: they are meaningless until the
	// artifact exists.
	arts := &ArtifactSet{Root: e.root, texts: make(map[string]string)}
	for _, rel := range rule.Artifacts {
		full := filepath.Join(e.root, rel)
		info, err := os.Stat(full)
		if err != nil {
			if os.IsNotExist(err) {
				res.Blockers = append(res.Blockers, "required artifact missing: "+rel)
				continue
			}
			return nil, fmt.Errorf("stat artifact %s: %w", rel, err)
		}
		if info.IsDir() {
			arts.texts[rel] = ""
			continue
		}
		data, err := os.ReadFile(full)
		if err != nil {
			return nil, fmt.Errorf("read artifact %s: %w", rel, err)
		}
		arts.texts[rel] = string(data)
	}

	if len(res.Blockers) > 0 {
		res.Passed = false
		res.Message = res.Summary()
		return res, nil
	}

	// Keyword presence is a permissive case-insensitive substring search.
	for _, kw := range rule.Keywords {
		if containsFold(arts.Text(kw.Artifact), kw.Word) {
			continue
		}
		if kw.Blocker {
			res.Blockers = append(res.Blockers, kw.Message)
		} else {
			res.Warnings = append(res.Warnings, kw.Message)
		}
	}

	for _, th := range rule.Thresholds {
		want := th.Value
		if ov, ok := e.overrides[gateID][th.Metric]; ok {
			want = ov
		}
		got, found := extractMetric(arts.Text(th.Artifact), th.Metric)
		if !found {
			if th.Optional {
				res.Warnings = append(res.Warnings,
					fmt.Sprintf("optional metric %s not found in %s", th.Metric, th.Artifact))
				continue
			}
			got = 0
		}
		res.Metrics[th.Metric] = got
		if !compare(got, th.Op, want) {
			res.Blockers = append(res.Blockers, thresholdFailure(th.Metric, got, th.Op, want))
		}
	}

	if rule.Inspect != nil {
		rule.Inspect(arts, res)
	}

	res.Passed = len(res.Blockers) == 0
	res.Message = res.Summary()
	return res, nil
}

// EvaluateAll runs every registered gate and returns results keyed by id.
func (e *Evaluator) EvaluateAll() (map[string]*Result, error) {
	out := make(map[string]*Result, len(registry))
	for _, id := range Gates() {
		res, err := e.Evaluate(id)
		if err != nil {
			return nil, err
		}
		out[id] = res
	}
	return out, nil
}

// containsFold reports whether text contains word, ignoring case.
func containsFold(text, word string) bool {
	return strings.Contains(strings.ToLower(text), strings.ToLower(word))
}

// extractMetric finds "name: 87", "name = 87%" etc. in text and returns the
// numeric value. The first match wins.
func extractMetric(text, name string) (float64, bool) {
	re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(name) + `\s*[:=]\s*([0-9]+(?:\.[0-9]+)?)\s*%?`)
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func compare(got float64, op string, want float64) bool {
	switch op {
	case ">=":
		return got >= want
	case "<=":
		return got <= want
	case "==":
		return got == want
	default:
		return false
	}
}

// thresholdFailure renders a failed comparison as a human-readable blocker,
// e.g. "sample count 500 below minimum 1000".
func thresholdFailure(metric string, got float64, op string, want float64) string {
	name := strings.ReplaceAll(metric, "_", " ")
	g := strconv.FormatFloat(got, 'f', -1, 64)
	w := strconv.FormatFloat(want, 'f', -1, 64)
	switch op {
	case ">=":
		return fmt.Sprintf("%s %s below minimum %s", name, g, w)
	case "<=":
		return fmt.Sprintf("%s %s above maximum %s", name, g, w)
	default:
		return fmt.Sprintf("%s %s does not equal required %s", name, g, w)
	}
}
