package flodesk

import "encoding/json"

// maxEnvelopeDepth bounds the unwrap: the deepest nesting observed from
// Flodesk is data.data.data.
const maxEnvelopeDepth = 3

// unwrapEnvelope peels Flodesk's inconsistent response envelopes down to the
// actual payload. Observed shapes, in priority order: {"data":{"data":{"data":X}}},
// {"data":{"data":X}}, {"data":X}, and X itself (bare object or array). This
// is the single place that knowledge lives; services never inspect envelope
// nesting themselves.
func unwrapEnvelope(raw json.RawMessage) json.RawMessage {
	cur := raw
	for depth := 0; depth < maxEnvelopeDepth; depth++ {
		var env struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(cur, &env); err != nil || len(env.Data) == 0 {
			break
		}
		cur = env.Data
	}
	return cur
}
