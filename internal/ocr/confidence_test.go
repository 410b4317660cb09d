package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/form106-ingest/constants"
	"github.com/joseph-ayodele/form106-ingest/internal/common"
)

const tsvHeader = "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n"

func TestParseTSV(t *testing.T) {
	tsv := tsvHeader +
		"1\t1\t0\t0\t0\t0\t0\t0\t100\t100\t-1\t\n" +
		"4\t1\t1\t1\t1\t0\t0\t0\t100\t20\t-1\t\n" +
		"5\t1\t1\t1\t1\t1\t0\t0\t10\t10\t96.5\tשנת\n" +
		"5\t1\t1\t1\t1\t2\t0\t0\t10\t10\t40\tמס\n" +
		"5\t1\t1\t1\t1\t3\t0\t0\t10\t10\t-1\tnoise\n" +
		"5\t1\t1\t1\t1\t4\t0\t0\t10\t10\t88\t   \n" +
		"5\t1\t1\t1\t1\t5\t0\t0\t10\t10\t71\t2024\r\n" +
		"garbage line\n"

	got := ParseTSV(tsv)
	assert.Equal(t, 3, got.WordCount)
	assert.Equal(t, 69.17, got.Mean)
	assert.Equal(t, 40.0, got.Min)
	assert.Equal(t, 0.333, got.LowConfidenceRatio)
}

func TestParseTSV_Empty(t *testing.T) {
	assert.Equal(t, Confidence{Mean: 0, Min: 0, LowConfidenceRatio: 1, WordCount: 0}, ParseTSV(tsvHeader))
	assert.Equal(t, Confidence{Mean: 0, Min: 0, LowConfidenceRatio: 1, WordCount: 0}, ParseTSV(""))
}

func TestAggregate_WeightsByWordCount(t *testing.T) {
	got := Aggregate([]Confidence{
		{Mean: 90, Min: 80, LowConfidenceRatio: 0, WordCount: 30},
		{Mean: 0, Min: 0, LowConfidenceRatio: 1, WordCount: 0},
		{Mean: 50, Min: 20, LowConfidenceRatio: 0.5, WordCount: 10},
	})
	assert.Equal(t, 40, got.WordCount)
	assert.Equal(t, 80.0, got.Mean)
	assert.Equal(t, 20.0, got.Min)
	assert.Equal(t, 0.125, got.LowConfidenceRatio)
}

func TestAggregate_NoWords(t *testing.T) {
	assert.Equal(t, emptyConfidence, Aggregate(nil))
	assert.Equal(t, emptyConfidence, Aggregate([]Confidence{emptyConfidence}))
}

func TestQualityGate_Evaluate(t *testing.T) {
	tests := []struct {
		name     string
		gate     QualityGate
		conf     Confidence
		critical bool
		warnings []string
	}{
		{
			name: "good",
			conf: Confidence{Mean: 91, Min: 60, LowConfidenceRatio: 0.05, WordCount: 100},
		},
		{
			name:     "critical",
			conf:     Confidence{Mean: 35.5, Min: 1, LowConfidenceRatio: 0.9, WordCount: 100},
			critical: true,
		},
		{
			name:     "marginal",
			conf:     Confidence{Mean: 55, Min: 50, LowConfidenceRatio: 0, WordCount: 100},
			warnings: []string{"OCR quality is marginal (mean confidence: 55%). Extracted values may contain errors; please review them."},
		},
		{
			name:     "many low words",
			conf:     Confidence{Mean: 70, Min: 10, LowConfidenceRatio: 0.42, WordCount: 100},
			warnings: []string{"42% of words have low confidence. Some text may be incorrectly recognized."},
		},
		{
			name: "too few words to judge",
			conf: Confidence{Mean: 5, Min: 1, LowConfidenceRatio: 1, WordCount: 9},
		},
		{
			name: "disabled",
			gate: QualityGate{Disabled: true},
			conf: Confidence{Mean: 5, Min: 1, LowConfidenceRatio: 1, WordCount: 100},
		},
		{
			name:     "custom thresholds",
			gate:     QualityGate{CriticalMean: 20, WarningMean: 30},
			conf:     Confidence{Mean: 25, Min: 10, LowConfidenceRatio: 0.1, WordCount: 50},
			warnings: []string{"OCR quality is marginal (mean confidence: 25%). Extracted values may contain errors; please review them."},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warnings, err := tt.gate.Evaluate(tt.conf)
			if tt.critical {
				require.Error(t, err)
				f, ok := common.AsFailure(err)
				require.True(t, ok)
				assert.Equal(t, constants.CodeOCRQualityCritical, f.Code)
				assert.Contains(t, f.Message, "(mean confidence: 35.5%, threshold: 40%)")
				assert.Contains(t, f.Message, "300+ DPI")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.warnings, warnings)
		})
	}
}

func TestDefaultQualityGate(t *testing.T) {
	g := DefaultQualityGate()
	assert.Equal(t, QualityGate{CriticalMean: 40, WarningMean: 60, LowConfidenceRatio: 0.3, MinWords: 10}, g)
}
