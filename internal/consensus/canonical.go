package consensus

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/inodb/promoscan/internal/promoter"
)

type wireConsensus struct {
	Count   int              `json:"count"`
	Box35   []map[string]int `json:"box35"`
	Box10   []map[string]int `json:"box10"`
	Spacers map[string]int   `json:"spacers"`
}

func toWire(c Consensus) wireConsensus {
	w := wireConsensus{
		Count:   c.Count,
		Box35:   boxToWire(c.Box35),
		Box10:   boxToWire(c.Box10),
		Spacers: make(map[string]int, spacerSlots),
	}
	for i, v := range c.Spacers {
		w.Spacers[strconv.Itoa(i+promoter.MinSpacer)] = v
	}
	return w
}

func boxToWire(box [promoter.BoxLen]BaseCounts) []map[string]int {
	out := make([]map[string]int, len(box))
	for i, p := range box {
		m := make(map[string]int, len(Bases))
		for b, v := range p {
			m[Bases[b:b+1]] = v
		}
		out[i] = m
	}
	return out
}

func fromWire(key string, w wireConsensus) (Consensus, error) {
	var c Consensus
	c.Count = w.Count
	if err := boxFromWire(&c.Box35, w.Box35); err != nil {
		return c, fmt.Errorf("key %q box35: %w", key, err)
	}
	if err := boxFromWire(&c.Box10, w.Box10); err != nil {
		return c, fmt.Errorf("key %q box10: %w", key, err)
	}
	for s, v := range w.Spacers {
		n, err := strconv.Atoi(s)
		if err != nil || n < promoter.MinSpacer || n > promoter.MaxSpacer {
			return c, fmt.Errorf("key %q: invalid spacer length %q", key, s)
		}
		c.Spacers[n-promoter.MinSpacer] = v
	}
	return c, nil
}

func boxFromWire(box *[promoter.BoxLen]BaseCounts, w []map[string]int) error {
	if len(w) != promoter.BoxLen {
		return fmt.Errorf("expected %d positions, got %d", promoter.BoxLen, len(w))
	}
	for i, m := range w {
		for base, v := range m {
			if len(base) != 1 {
				return fmt.Errorf("invalid base %q", base)
			}
			box[i][baseIndex(base[0])] += v
		}
	}
	return nil
}

// MarshalCanonical serializes the aggregate as a JSON object with sorted keys.
// Equal aggregates always produce identical bytes.
func MarshalCanonical(a *Aggregate) ([]byte, error) {
	out := make(map[string]wireConsensus, len(a.keys))
	for k, c := range a.Snapshot() {
		out[k] = toWire(c)
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("marshal aggregate: %w", err)
	}
	return Canonicalize(b)
}

// Canonicalize rewrites a JSON document with sorted object keys and numbers
// in their shortest form, so 3.0 and 3 compare equal.
func Canonicalize(b []byte) ([]byte, error) {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, fmt.Errorf("decode canonical json: %w", err)
	}
	out, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode canonical json: %w", err)
	}
	return out, nil
}

// ParseCanonical rebuilds an aggregate from its canonical JSON form.
func ParseCanonical(b []byte) (*Aggregate, error) {
	canon, err := Canonicalize(b)
	if err != nil {
		return nil, err
	}
	var wire map[string]wireConsensus
	if err := json.Unmarshal(canon, &wire); err != nil {
		return nil, fmt.Errorf("decode aggregate: %w", err)
	}
	if _, ok := wire[AllKey]; !ok {
		return nil, fmt.Errorf("decode aggregate: missing %q key", AllKey)
	}
	names := make([]string, 0, len(wire))
	for k := range wire {
		if k != AllKey {
			names = append(names, k)
		}
	}
	a, err := NewAggregate(names)
	if err != nil {
		return nil, err
	}
	for k, w := range wire {
		c, err := fromWire(k, w)
		if err != nil {
			return nil, fmt.Errorf("decode aggregate: %w", err)
		}
		a.entries[k].c = c
	}
	return a, nil
}

// Verify reports whether candidate and baseline hold identical models under an
// identical key set. Neither aggregate is modified.
func Verify(candidate, baseline *Aggregate) bool {
	cs, bs := candidate.Snapshot(), baseline.Snapshot()
	if len(cs) != len(bs) {
		return false
	}
	for k, c := range cs {
		b, ok := bs[k]
		if !ok || b != c {
			return false
		}
	}
	return true
}

// Verification is the outcome of comparing an aggregate with a stored baseline.
type Verification struct {
	Equal              bool
	Differ             []string // keys present on both sides with different models
	MissingInCandidate []string // baseline keys the candidate lacks
	MissingInBaseline  []string // candidate keys the baseline lacks
}

// VerifyCanonical compares candidate with a baseline in canonical JSON form.
// A mismatch is reported through the Verification; an error means the
// baseline could not be decoded.
func VerifyCanonical(candidate *Aggregate, baseline []byte) (Verification, error) {
	cb, err := MarshalCanonical(candidate)
	if err != nil {
		return Verification{}, err
	}
	bb, err := Canonicalize(baseline)
	if err != nil {
		return Verification{}, fmt.Errorf("baseline: %w", err)
	}

	var cm, bm map[string]json.RawMessage
	if err := json.Unmarshal(cb, &cm); err != nil {
		return Verification{}, fmt.Errorf("decode candidate: %w", err)
	}
	if err := json.Unmarshal(bb, &bm); err != nil {
		return Verification{}, fmt.Errorf("baseline: %w", err)
	}

	var v Verification
	for k, c := range cm {
		b, ok := bm[k]
		switch {
		case !ok:
			v.MissingInBaseline = append(v.MissingInBaseline, k)
		case !bytes.Equal(b, c):
			v.Differ = append(v.Differ, k)
		}
	}
	for k := range bm {
		if _, ok := cm[k]; !ok {
			v.MissingInCandidate = append(v.MissingInCandidate, k)
		}
	}
	sort.Strings(v.Differ)
	sort.Strings(v.MissingInBaseline)
	sort.Strings(v.MissingInCandidate)
	v.Equal = len(v.Differ) == 0 && len(v.MissingInBaseline) == 0 && len(v.MissingInCandidate) == 0
	return v, nil
}
