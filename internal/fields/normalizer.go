package fields

import (
	"errors"
	"log/slog"

	"github.com/joseph-ayodele/form106-ingest/constants"
	"github.com/joseph-ayodele/form106-ingest/internal/common"
	"github.com/joseph-ayodele/form106-ingest/internal/entity"
)

// Normalizer runs the garbled-text check and then each strategy in order.
type Normalizer struct {
	strategies []Strategy
	logger     *slog.Logger
}

// NewNormalizer uses strategies in order; none means fixed-label then anchor.
func NewNormalizer(logger *slog.Logger, strategies ...Strategy) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	if len(strategies) == 0 {
		strategies = []Strategy{FixedLabel{}, DefaultAnchor()}
	}
	return &Normalizer{strategies: strategies, logger: logger}
}

// Normalize returns the first complete record any strategy produces, or a
// normalize-stage failure. Failures never carry document text.
func (n *Normalizer) Normalize(text entity.ExtractedText) (entity.ExtractedRecord, error) {
	if IsGarbled(text.Raw) {
		return entity.ExtractedRecord{}, common.NewFailure(constants.CodeTextGarbled,
			"text layer appears corrupted; OCR is required", nil)
	}

	var lastMiss *common.IngestionFailure
	for _, s := range n.strategies {
		rec, err := s.Parse(text.Raw)
		if err == nil {
			n.logger.Debug("record normalized", "strategy", s.Name())
			return rec, nil
		}
		if !errors.Is(err, ErrNoMatch) {
			return entity.ExtractedRecord{}, common.WrapFailure(constants.StageNormalize, err)
		}
		if f, ok := common.AsFailure(err); ok {
			lastMiss = f
		}
		n.logger.Debug("strategy did not match", "strategy", s.Name())
	}
	if lastMiss != nil {
		return entity.ExtractedRecord{}, lastMiss
	}
	names := make([]string, len(entity.MandatoryFields))
	for i, f := range entity.MandatoryFields {
		names[i] = string(f)
	}
	return entity.ExtractedRecord{}, missingFields(names)
}
