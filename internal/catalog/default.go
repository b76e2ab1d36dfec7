package catalog

// DefaultCatalogYAML is the built-in device catalog, written out by
// `hoorii init-catalog` and installed by LoadDefault when no catalog file is
// configured. The device set and thresholds mirror the reference deployment.
const DefaultCatalogYAML = `# hoorii device catalog
# Generated by: hoorii init-catalog
#
# devices: device_type -> spec
#   display_name: human-readable name used in replies
#   min_trust:    0-100 baseline trust required for any command on this device
#   aliases:      extra references resolving to this type (external ids, synonyms)
#   commands:
#     name:           command identifier the model may request
#     trust_modifier: added to min_trust for this command (never below 0 total)
#     state_fields:   state keys a successful execution writes
#     params:
#       name:           parameter name
#       kind:           integer | float | boolean | enum
#       range:          [min, max] for numeric kinds; omit for unconstrained
#       allowed_values: required for enum kinds
#       default:        substituted when the model omits the parameter
#       strict:         true = reject out-of-range instead of clamping

devices:
  dimmable_light:
    display_name: "Dimmable Light"
    min_trust: 30
    aliases: ["light", "lights", "57D56F4D-3302-41F7-AB34-5365AA180E81"]
    commands:
      - name: turn_on
        state_fields: [isOn, status]
      - name: turn_off
        state_fields: [isOn, status]
      - name: set_brightness
        state_fields: [brightness, isOn, status]
        params:
          - name: brightness
            kind: integer
            range: [0, 100]
            default: 50
      - name: set_color
        state_fields: [hue, saturation, isOn, status]
        params:
          - name: hue
            kind: integer
            range: [0, 360]
            default: 0
          - name: saturation
            kind: integer
            range: [0, 100]
            default: 50

  curtain:
    display_name: "Curtain"
    min_trust: 30
    aliases: ["curtains", "2FB9EE1F-1C21-4D0B-9383-9B65F64DBF0E"]
    commands:
      - name: open_curtain
        state_fields: [targetPosition, currentPosition, isOn, status]
      - name: close_curtain
        state_fields: [targetPosition, currentPosition, isOn, status]
      - name: set_position
        state_fields: [targetPosition, currentPosition, isOn, status]
        params:
          - name: targetPosition
            kind: integer
            range: [0, 100]
            default: 0

  air_conditioner:
    display_name: "Air Conditioner"
    min_trust: 60
    aliases: ["ac", "aircon"]
    commands:
      - name: turn_on
        state_fields: [isOn, status]
      - name: turn_off
        state_fields: [isOn, status]
      - name: set_temperature
        trust_modifier: 10
        state_fields: [temperature, status]
        params:
          - name: temperature
            kind: integer
            range: [16, 30]
            default: 24
            strict: true
      - name: set_mode
        state_fields: [mode, status]
        params:
          - name: mode
            kind: enum
            allowed_values: [cool, heat, fan, auto]
            default: auto

  speaker:
    display_name: "Speaker"
    min_trust: 40
    commands:
      - name: turn_on
        state_fields: [isOn, status]
      - name: turn_off
        state_fields: [isOn, status]
      - name: set_volume
        trust_modifier: 10
        state_fields: [volume, status]
        params:
          - name: volume
            kind: integer
            range: [0, 100]
            default: 50

  tv:
    display_name: "TV"
    min_trust: 40
    aliases: ["television"]
    commands:
      - name: turn_on
        state_fields: [isOn, status]
      - name: turn_off
        state_fields: [isOn, status]
      - name: set_volume
        state_fields: [volume, status]
        params:
          - name: volume
            kind: integer
            range: [0, 100]
            default: 30
      - name: set_input
        state_fields: [input, status]
        params:
          - name: input
            kind: enum
            allowed_values: [hdmi1, hdmi2, tv, cast]
            default: tv
`
