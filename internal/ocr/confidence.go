package ocr

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/form106-ingest/constants"
	"github.com/joseph-ayodele/form106-ingest/internal/common"
)

// LowConfidenceWord is the per-word confidence below which a word counts as low.
const LowConfidenceWord = 50.0

// Confidence summarizes word-level recognition confidence on a 0-100 scale.
type Confidence struct {
	Mean               float64 `json:"mean"`
	Min                float64 `json:"min"`
	LowConfidenceRatio float64 `json:"lowConfidenceRatio"`
	WordCount          int     `json:"wordCount"`
}

var emptyConfidence = Confidence{Mean: 0, Min: 0, LowConfidenceRatio: 1, WordCount: 0}

// TSV columns used; see tesseract's tsv renderer.
const (
	tsvLevel   = 0
	tsvConf    = 10
	tsvText    = 11
	levelWord  = "5"
	tsvColumns = 12
)

// ParseTSV computes page confidence from tesseract TSV output. Only word rows
// with non-negative confidence and non-blank text count.
func ParseTSV(tsv string) Confidence {
	var confs []float64
	for i, line := range strings.Split(tsv, "\n") {
		if i == 0 || line == "" {
			continue
		} // skip header
		cols := strings.Split(strings.TrimRight(line, "\r"), "\t")
		if len(cols) < tsvColumns || cols[tsvLevel] != levelWord {
			continue
		}
		if strings.TrimSpace(cols[tsvText]) == "" {
			continue
		}
		c, err := strconv.ParseFloat(strings.TrimSpace(cols[tsvConf]), 64)
		if err != nil || c < 0 {
			continue
		}
		confs = append(confs, c)
	}
	return FromWordConfidences(confs)
}

// FromWordConfidences builds a page Confidence from raw word scores.
func FromWordConfidences(confs []float64) Confidence {
	if len(confs) == 0 {
		return emptyConfidence
	}
	sum, lo, low := 0.0, math.MaxFloat64, 0
	for _, c := range confs {
		sum += c
		lo = math.Min(lo, c)
		if c < LowConfidenceWord {
			low++
		}
	}
	return Confidence{
		Mean:               round(sum/float64(len(confs)), 2),
		Min:                lo,
		LowConfidenceRatio: round(float64(low)/float64(len(confs)), 3),
		WordCount:          len(confs),
	}
}

// Aggregate combines page confidences: the mean is weighted by word count and
// the minimum only considers pages that had words.
func Aggregate(pages []Confidence) Confidence {
	total, low := 0, 0
	weighted := 0.0
	lo := 100.0
	for _, p := range pages {
		if p.WordCount == 0 {
			continue
		}
		total += p.WordCount
		weighted += p.Mean * float64(p.WordCount)
		lo = math.Min(lo, p.Min)
		low += int(math.Round(p.LowConfidenceRatio * float64(p.WordCount)))
	}
	if total == 0 {
		return emptyConfidence
	}
	return Confidence{
		Mean:               round(weighted/float64(total), 2),
		Min:                lo,
		LowConfidenceRatio: round(float64(low)/float64(total), 3),
		WordCount:          total,
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// QualityGate decides whether OCR output is trustworthy enough to parse.
type QualityGate struct {
	Disabled           bool
	CriticalMean       float64 // default 40
	WarningMean        float64 // default 60
	LowConfidenceRatio float64 // default 0.3
	MinWords           int     // default 10
}

// DefaultQualityGate returns the stock thresholds.
func DefaultQualityGate() QualityGate {
	return QualityGate{}.withDefaults()
}

func (g QualityGate) withDefaults() QualityGate {
	if g.CriticalMean <= 0 {
		g.CriticalMean = 40
	}
	if g.WarningMean <= 0 {
		g.WarningMean = 60
	}
	if g.LowConfidenceRatio <= 0 {
		g.LowConfidenceRatio = 0.3
	}
	if g.MinWords <= 0 {
		g.MinWords = 10
	}
	return g
}

// Evaluate returns warnings for marginal output, or an OCR_QUALITY_CRITICAL
// failure. Pages with too few words to judge pass unchecked.
func (g QualityGate) Evaluate(c Confidence) ([]string, error) {
	g = g.withDefaults()
	if g.Disabled || c.WordCount < g.MinWords {
		return nil, nil
	}
	if c.Mean < g.CriticalMean {
		return nil, common.NewFailuref(constants.CodeOCRQualityCritical, nil,
			"OCR quality too low to extract reliably. Please provide a higher resolution scan (300+ DPI) "+
				"with good lighting and no shadows. (mean confidence: %s%%, threshold: %s%%)",
			fmtNum(c.Mean), fmtNum(g.CriticalMean))
	}
	var warnings []string
	if c.Mean < g.WarningMean {
		warnings = append(warnings, fmt.Sprintf(
			"OCR quality is marginal (mean confidence: %s%%). Extracted values may contain errors; please review them.",
			fmtNum(c.Mean)))
	}
	if c.LowConfidenceRatio > g.LowConfidenceRatio {
		warnings = append(warnings, fmt.Sprintf(
			"%d%% of words have low confidence. Some text may be incorrectly recognized.",
			int(math.Round(c.LowConfidenceRatio*100))))
	}
	return warnings, nil
}

func fmtNum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
