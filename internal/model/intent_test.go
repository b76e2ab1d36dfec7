package model

import "testing"

func TestIntentFromMapCoercion(t *testing.T) {
	m := map[string]any{
		"involves_hardware": true,
		"device":            "dimmable_light",
		"action":            "set_brightness",
		"parameters":        map[string]any{"brightness": float64(80)},
		"confidence":        0.92,
	}

	g := IntentFromMap(m)
	if !g.InvolvesHardware {
		t.Error("expected involves_hardware=true")
	}
	if g.DeviceRef != "dimmable_light" {
		t.Errorf("expected device_ref=dimmable_light, got %q", g.DeviceRef)
	}
	if g.CommandName != "set_brightness" {
		t.Errorf("expected command_name=set_brightness, got %q", g.CommandName)
	}
	if g.RawParams["brightness"] != float64(80) {
		t.Errorf("expected brightness param, got %v", g.RawParams)
	}
	if g.Confidence != 0.92 {
		t.Errorf("expected confidence 0.92, got %v", g.Confidence)
	}
}

func TestIntentFromMapCanonicalFieldsWin(t *testing.T) {
	m := map[string]any{
		"device_ref":   "curtain",
		"device":       "ignored",
		"command_name": "open_curtain",
		"action":       "ignored",
	}
	g := IntentFromMap(m)
	if g.DeviceRef != "curtain" || g.CommandName != "open_curtain" {
		t.Errorf("canonical fields should win: %+v", g)
	}
}

func TestIntentFromMapMalformed(t *testing.T) {
	cases := []struct {
		name string
		in   map[string]any
	}{
		{"nil map", nil},
		{"wrong types", map[string]any{
			"involves_hardware": "maybe",
			"device":            42,
			"parameters":        []any{"not", "a", "map"},
			"confidence":        "high",
		}},
		{"null strings", map[string]any{"device": "null", "action": "none"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := IntentFromMap(tc.in)
			if g.InvolvesHardware || g.DeviceRef != "" || g.CommandName != "" {
				t.Errorf("malformed input must coerce to zero values, got %+v", g)
			}
			if g.RawParams != nil {
				t.Errorf("expected nil raw params, got %v", g.RawParams)
			}
		})
	}
}

func TestIntentFromMapConfidenceClamped(t *testing.T) {
	if g := IntentFromMap(map[string]any{"confidence": 3.7}); g.Confidence != 1 {
		t.Errorf("confidence should clamp to 1, got %v", g.Confidence)
	}
	if g := IntentFromMap(map[string]any{"confidence": -0.5}); g.Confidence != 0 {
		t.Errorf("confidence should clamp to 0, got %v", g.Confidence)
	}
}

func TestClampTrust(t *testing.T) {
	for _, tc := range []struct{ in, want int }{
		{-10, 0}, {0, 0}, {55, 55}, {100, 100}, {140, 100},
	} {
		if got := ClampTrust(tc.in); got != tc.want {
			t.Errorf("ClampTrust(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
