package otel

import (
	"fmt"
	"sort"
	"time"

	"github.com/m-mizutani/sregame/trace"
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys follow the names the game dashboards already query.
func sessionStartTimeAttr(t time.Time) attribute.KeyValue {
	return attribute.String("session.start_time", t.UTC().Format(time.RFC3339))
}

func gameVersionAttr(version string) attribute.KeyValue {
	return attribute.String("game.version", version)
}

func positionAttrs(pos trace.Position) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Float64("player.x", pos.X),
		attribute.Float64("player.y", pos.Y),
	}
}

func elapsedAttr(d time.Duration) attribute.KeyValue {
	return attribute.Int64("session.elapsed_ms", d.Milliseconds())
}

// toAttributes converts event attributes into sorted OTel attributes so the
// exported order does not depend on map iteration.
func toAttributes(attrs map[string]any) []attribute.KeyValue {
	if len(attrs) == 0 {
		return nil
	}

	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := make([]attribute.KeyValue, 0, len(attrs))
	for _, key := range keys {
		switch v := attrs[key].(type) {
		case nil:
			continue
		case string:
			result = append(result, attribute.String(key, v))
		case int:
			result = append(result, attribute.Int(key, v))
		case int64:
			result = append(result, attribute.Int64(key, v))
		case float64:
			result = append(result, attribute.Float64(key, v))
		case bool:
			result = append(result, attribute.Bool(key, v))
		default:
			result = append(result, attribute.String(key, fmt.Sprintf("%v", v)))
		}
	}
	return result
}
