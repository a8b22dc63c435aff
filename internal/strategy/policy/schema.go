package policy

const policySchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "required": ["policy"],
  "properties": {
    "policy": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "enabled": {"type": "boolean"},
        "min_trend_strength": {"type": "number", "minimum": 0, "maximum": 1},
        "rsi_min": {"type": "number", "minimum": 0, "maximum": 100},
        "rsi_max": {"type": "number", "minimum": 0, "maximum": 100},
        "min_atr_pct": {"type": "number", "minimum": 0, "maximum": 1},
        "max_atr_pct": {"type": "number", "minimum": 0, "maximum": 1},
        "avoid_hours": {
          "type": "array",
          "items": {"type": "integer", "minimum": 0, "maximum": 23},
          "uniqueItems": true
        },
        "avoid_weekdays": {
          "type": "array",
          "items": {"type": "string", "minLength": 3}
        },
        "volume": {
          "type": "object",
          "additionalProperties": false,
          "properties": {
            "enabled": {"type": "boolean"},
            "ratio": {"type": "number", "exclusiveMinimum": 0}
          }
        },
        "stop_atr_mult": {"type": "number", "minimum": 0},
        "target_atr_mult": {"type": "number", "minimum": 0},
        "quality": {
          "type": "object",
          "additionalProperties": false,
          "properties": {
            "enabled": {"type": "boolean"},
            "min_risk_reward": {"type": "number", "minimum": 0},
            "min_stop_distance_pct": {"type": "number", "minimum": 0, "maximum": 1}
          }
        },
        "loss_lockout": {
          "type": "object",
          "additionalProperties": false,
          "properties": {
            "max_consecutive_losses": {"type": "integer", "minimum": 0},
            "lockout_hours": {"type": "number", "minimum": 0}
          }
        },
        "risk_per_trade": {"type": "number", "minimum": 0, "exclusiveMaximum": 1},
        "max_position_pct": {"type": "number", "minimum": 0, "maximum": 1}
      }
    }
  }
}`
