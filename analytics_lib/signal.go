package analytics

import (
	"fmt"
	"sort"
	"strings"
)

// SignalInput is everything the signal rules look at for one strike
type SignalInput struct {
	Strike        float64
	Spot          float64
	CEPriceChange *float64
	PEPriceChange *float64
	CEOIChange    int64
	PEOIChange    int64
	OIDiff        int64
	OIDiffPrev    int64
	CEIV          *float64
	PEIV          *float64
}

// SignalInputFor assembles the signal inputs for a record. prevOIDiff overrides the
// previous OI difference reconstructed from the record's OI changes.
func SignalInputFor(r StrikeRecord, spot float64, prevOIDiff *int64) SignalInput {
	in := SignalInput{
		Strike:     r.Strike,
		Spot:       spot,
		CEOIChange: r.CEOIChange,
		PEOIChange: r.PEOIChange,
		OIDiff:     r.OIDiff(),
		OIDiffPrev: r.PrevOIDiff(),
		CEIV:       r.CEIV,
		PEIV:       r.PEIV,
	}
	if prevOIDiff != nil {
		in.OIDiffPrev = *prevOIDiff
	}
	if ch, ok := r.CEPriceChange(); ok {
		in.CEPriceChange = &ch
	}
	if ch, ok := r.PEPriceChange(); ok {
		in.PEPriceChange = &ch
	}
	return in
}

func flipped(prev, cur int64) bool {
	return (prev > 0 && cur < 0) || (prev < 0 && cur > 0)
}

// DetectSignalRow applies the build-up rules to one strike.
// In-the-money calls get CALL_BUY when calls are being bought or covered while puts
// are being sold or unwound; the mirror holds for puts below spot.
func DetectSignalRow(in SignalInput) StrikeSignal {
	out := StrikeSignal{Strike: in.Strike, Signal: SignalNone}
	if in.CEPriceChange == nil || in.PEPriceChange == nil {
		return out
	}

	ceBU := ClassifyBuildUp(*in.CEPriceChange, in.CEOIChange)
	peBU := ClassifyBuildUp(*in.PEPriceChange, in.PEOIChange)
	oiFlip := flipped(in.OIDiffPrev, in.OIDiff)

	haveSkew := in.CEIV != nil && in.PEIV != nil
	var ivSkew float64
	if haveSkew {
		ivSkew = *in.PEIV - *in.CEIV
	}

	switch {
	case in.Spot > in.Strike &&
		(ceBU == ShortCovering || ceBU == LongBuildUp) &&
		(peBU == LongUnwinding || peBU == ShortBuildUp):
		out.Signal = SignalCallBuy
		out.Score = 2
		out.Reasons = append(out.Reasons, fmt.Sprintf("CE %s, PE %s", ceBU, peBU))
		if oiFlip {
			out.Score++
			out.Reasons = append(out.Reasons, "OI difference flipped toward CE")
		}
		if haveSkew && ivSkew < 0 {
			out.Score++
			out.Reasons = append(out.Reasons, "IV skew favourable for calls (CE IV rising)")
		}

	case in.Spot < in.Strike &&
		(peBU == ShortCovering || peBU == LongBuildUp) &&
		(ceBU == LongUnwinding || ceBU == ShortBuildUp):
		out.Signal = SignalPutBuy
		out.Score = 2
		out.Reasons = append(out.Reasons, fmt.Sprintf("PE %s, CE %s", peBU, ceBU))
		if oiFlip {
			out.Score++
			out.Reasons = append(out.Reasons, "OI difference flipped toward PE")
		}
		if haveSkew && ivSkew > 0 {
			out.Score++
			out.Reasons = append(out.Reasons, "IV skew favourable for puts (PE IV rising)")
		}
	}

	out.Reason = strings.Join(out.Reasons, "; ")
	return out
}

// DetectSignals evaluates every strike of the snapshot, ordered by strike.
// prevOIDiff may be nil; strikes absent from it use the reconstructed previous difference.
func DetectSignals(snapshot OptionChainSnapshot, prevOIDiff map[float64]int64) []StrikeSignal {
	out := make([]StrikeSignal, 0, len(snapshot.Records))
	for _, r := range snapshot.Records {
		var prev *int64
		if v, ok := prevOIDiff[r.Strike]; ok {
			prev = &v
		}
		out = append(out, DetectSignalRow(SignalInputFor(r, snapshot.Spot, prev)))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Strike < out[j].Strike })
	return out
}
