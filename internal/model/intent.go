package model

// IntentGuess is the structured guess extracted from free-form input by the
// model-call collaborator. Every field is untrusted: the guess may be
// malformed, reference unknown devices, or carry junk parameters. The
// command validator is the single choke point that turns RawParams into a
// typed ValidatedCommand — nothing else may trust these fields.
type IntentGuess struct {
	InvolvesHardware bool           `json:"involves_hardware"`
	DeviceRef        string         `json:"device_ref"`
	CommandName      string         `json:"command_name"`
	RawParams        map[string]any `json:"raw_params,omitempty"`
	Confidence       float64        `json:"confidence"`
	Reasoning        string         `json:"reasoning,omitempty"`
}

// IntentReply bundles the intent guess with the free-text reply the model
// produced in the same call.
type IntentReply struct {
	Intent IntentGuess `json:"intent"`
	Reply  string      `json:"reply"`
}

// IntentFromMap builds an IntentGuess from a raw decoded JSON object with
// defensive coercion. Missing or mistyped fields fall back to zero values;
// confidence is clamped to [0,1]. Model output is never assumed well-formed.
func IntentFromMap(m map[string]any) IntentGuess {
	var g IntentGuess
	if m == nil {
		return g
	}

	g.InvolvesHardware = toBool(m["involves_hardware"])
	g.DeviceRef = toString(m["device_ref"], m["device"])
	g.CommandName = toString(m["command_name"], m["command"], m["action"])
	g.Reasoning = toString(m["reasoning"], m["context_reference"])

	if params, ok := m["raw_params"].(map[string]any); ok {
		g.RawParams = params
	} else if params, ok := m["parameters"].(map[string]any); ok {
		g.RawParams = params
	}

	g.Confidence = clamp01(toFloat(m["confidence"]))
	return g
}

func toBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b == "true" || b == "yes"
	case float64:
		return b != 0
	default:
		return false
	}
}

// toString returns the first candidate that is a non-empty, non-"null" string.
func toString(candidates ...any) string {
	for _, v := range candidates {
		if s, ok := v.(string); ok && s != "" && s != "null" && s != "none" {
			return s
		}
	}
	return ""
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
