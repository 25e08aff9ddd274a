package extraction

import (
	"context"
	"fmt"
	"strings"

	"github.com/tracemed-ai/platform/pkg/oracle"
)

// Preprocessor rewrites the raw narrative into a normalized form before
// segmentation: spelling, punctuation, relative dates. Optional stage.
type Preprocessor struct {
	Oracle oracle.Client
}

func (p *Preprocessor) Kind() StageKind { return StagePreprocess }

func (p *Preprocessor) Execute(ctx context.Context, state *StageState) error {
	cleaned, err := p.Oracle.Complete(ctx, preprocessMessages(state.JourneyText), oracle.Options{MaxTokens: 4096})
	if err != nil {
		return fmt.Errorf("preprocessing journey: %w", err)
	}

	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		state.Warn("preprocessing returned empty text, keeping original narrative")
		return nil
	}

	state.JourneyText = cleaned
	state.Sentences = SplitSentences(cleaned)
	return nil
}
