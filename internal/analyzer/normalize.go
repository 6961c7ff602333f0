package analyzer

import (
	"fmt"
	"sort"
	"time"

	"github.com/brandguardian/go-auditor/internal/audit"
)

// #region analysis

// Analysis is the validated, normalized analyzer output. Primary and
// fallback on-screen text are kept separate here; the ingestion stage owns
// the fallback decision and merge.
type Analysis struct {
	Transcript   []audit.Utterance
	PrimaryText  []audit.TextFragment
	FallbackText []audit.TextFragment
	Duration     time.Duration
	PlatformHint string
}

// #endregion analysis

// #region normalize

// normalize converts the wire payload into typed records, rejecting
// negative offsets and restoring the non-decreasing offset invariant.
func normalize(wire analyzeResponse) (Analysis, error) {
	if wire.Duration < 0 {
		return Analysis{}, &Error{Kind: KindUnsupportedFormat, Err: fmt.Errorf("negative duration %f", wire.Duration)}
	}

	transcript := make([]audit.Utterance, 0, len(wire.Transcript))
	for i, seg := range wire.Transcript {
		if seg.Start < 0 || seg.End < seg.Start {
			return Analysis{}, &Error{Kind: KindUnsupportedFormat, Err: fmt.Errorf("transcript segment %d has invalid offsets", i)}
		}
		transcript = append(transcript, audit.Utterance{
			Speaker: seg.Speaker,
			Start:   secondsToDuration(seg.Start),
			End:     secondsToDuration(seg.End),
			Text:    seg.Text,
		})
	}
	sort.SliceStable(transcript, func(i, j int) bool {
		return transcript[i].Start < transcript[j].Start
	})

	primary, err := normalizeFragments(wire.OnscreenTextPrimary, audit.SourcePrimary)
	if err != nil {
		return Analysis{}, err
	}
	fallback, err := normalizeFragments(wire.OnscreenTextFallback, audit.SourceFallback)
	if err != nil {
		return Analysis{}, err
	}

	return Analysis{
		Transcript:   transcript,
		PrimaryText:  primary,
		FallbackText: fallback,
		Duration:     secondsToDuration(wire.Duration),
		PlatformHint: wire.PlatformHint,
	}, nil
}

func normalizeFragments(segs []wireSegment, source audit.FragmentSource) ([]audit.TextFragment, error) {
	frags := make([]audit.TextFragment, 0, len(segs))
	for i, seg := range segs {
		if seg.Start < 0 || seg.End < seg.Start {
			return nil, &Error{Kind: KindUnsupportedFormat, Err: fmt.Errorf("%s fragment %d has invalid offsets", source, i)}
		}
		frags = append(frags, audit.TextFragment{
			Text:       seg.Text,
			Start:      secondsToDuration(seg.Start),
			End:        secondsToDuration(seg.End),
			Confidence: seg.Confidence,
			Source:     source,
		})
	}
	sort.SliceStable(frags, func(i, j int) bool {
		return frags[i].Start < frags[j].Start
	})
	return frags, nil
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// #endregion normalize
