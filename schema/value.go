package schema

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Aggregate value discriminants. The "type" field on the wire selects
// the concrete shape.
const (
	NumberValueType     = "number"
	StatisticsValueType = "statistics/number"
	StringValueType     = "string"
)

// AggregateValue is the tagged union stored in aggregate rows and
// shipped in aggregate files. It is sealed: the only implementations
// are NumberValue, NumberStatisticsValue and StringValue.
type AggregateValue interface {
	ValueType() string
	aggregateValue()
}

// NumberValue is a single numeric metric.
type NumberValue struct {
	Value    float64 `json:"value"`
	Unit     string  `json:"unit,omitempty"`
	Format   string  `json:"format,omitempty"`
	Decimals *int    `json:"decimals,omitempty"`
}

func (NumberValue) ValueType() string { return NumberValueType }
func (NumberValue) aggregateValue() {}

func (v NumberValue) MarshalJSON() ([]byte, error) {
	type plain NumberValue
	return json.Marshal(struct {
		Type string `json:"type"`
		plain
	}{Type: NumberValueType, plain: plain(v)})
}

// NumberStatisticsValue carries a statistical summary. Every metric is
// optional; HighlightMetric names the one a UI should lead with. The
// wire key is camelCase for compatibility with existing data files.
type NumberStatisticsValue struct {
	Min             *float64 `json:"min,omitempty"`
	Max             *float64 `json:"max,omitempty"`
	Mean            *float64 `json:"mean,omitempty"`
	Median          *float64 `json:"median,omitempty"`
	Variance        *float64 `json:"variance,omitempty"`
	Sum             *float64 `json:"sum,omitempty"`
	Count           *int     `json:"count,omitempty"`
	Unit            string   `json:"unit,omitempty"`
	Format          string   `json:"format,omitempty"`
	HighlightMetric string   `json:"highlightMetric,omitempty"`
}

func (NumberStatisticsValue) ValueType() string { return StatisticsValueType }
func (NumberStatisticsValue) aggregateValue() {}

func (v NumberStatisticsValue) MarshalJSON() ([]byte, error) {
	type plain NumberStatisticsValue
	return json.Marshal(struct {
		Type string `json:"type"`
		plain
	}{Type: StatisticsValueType, plain: plain(v)})
}

// StringValue is a free-form textual metric.
type StringValue struct {
	Value string `json:"value"`
}

func (StringValue) ValueType() string { return StringValueType }
func (StringValue) aggregateValue() {}

func (v StringValue) MarshalJSON() ([]byte, error) {
	type plain StringValue
	return json.Marshal(struct {
		Type string `json:"type"`
		plain
	}{Type: StringValueType, plain: plain(v)})
}

// UnmarshalAggregateValue decodes an aggregate value from its JSON
// form, dispatching on the "type" discriminant. Unknown or missing
// discriminants are an error rather than a silent fallback.
func UnmarshalAggregateValue(data []byte) (AggregateValue, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("aggregate value is not an object: %w", err)
	}
	switch probe.Type {
	case NumberValueType:
		var v NumberValue
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("decode number value: %w", err)
		}
		return v, nil
	case StatisticsValueType:
		var v NumberStatisticsValue
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("decode statistics value: %w", err)
		}
		return v, nil
	case StringValueType:
		var v StringValue
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("decode string value: %w", err)
		}
		return v, nil
	case "":
		return nil, fmt.Errorf("aggregate value has no type discriminant")
	default:
		return nil, fmt.Errorf("unknown aggregate value type %q", probe.Type)
	}
}

// UnmarshalJSON decodes the row including its polymorphic value field.
func (g *GlobalAggregate) UnmarshalJSON(data []byte) error {
	type plain GlobalAggregate
	aux := struct {
		*plain
		Value json.RawMessage `json:"value"`
	}{plain: (*plain)(g)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.Value) == 0 {
		return fmt.Errorf("global aggregate %q has no value", g.Slug)
	}
	v, err := UnmarshalAggregateValue(aux.Value)
	if err != nil {
		return fmt.Errorf("global aggregate %q: %w", g.Slug, err)
	}
	g.Value = v
	return nil
}

// UnmarshalJSON decodes the row including its polymorphic value field.
func (c *ContributorAggregate) UnmarshalJSON(data []byte) error {
	type plain ContributorAggregate
	aux := struct {
		*plain
		Value json.RawMessage `json:"value"`
	}{plain: (*plain)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.Value) == 0 {
		return fmt.Errorf("contributor aggregate %q has no value", c.Aggregate)
	}
	v, err := UnmarshalAggregateValue(aux.Value)
	if err != nil {
		return fmt.Errorf("contributor aggregate %q: %w", c.Aggregate, err)
	}
	c.Value = v
	return nil
}
