package upstream

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"

	"github.com/go-viper/mapstructure/v2"

	"weatherproxy/internal/models"
)

// DecodeForecast turns a forecast.json body into a Weather record. Every
// non-pointer field must be present with the right type.
func DecodeForecast(raw string) (*models.Weather, error) {
	var w models.Weather
	if err := decode(raw, &w, "forecast"); err != nil {
		return nil, err
	}
	return &w, nil
}

// DecodeLocations turns a search.json body into location records.
func DecodeLocations(raw string) ([]models.Location, error) {
	var locs []models.Location
	if err := decode(raw, &locs, "locations"); err != nil {
		return nil, err
	}
	if locs == nil {
		locs = []models.Location{}
	}
	return locs, nil
}

func decode(raw string, out any, what string) error {
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return &DecodeError{Detail: what + ": invalid JSON", Err: err}
	}
	if doc == nil {
		return &DecodeError{Detail: what + ": empty document"}
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:           "json",
		ErrorUnset:        true,
		AllowUnsetPointer: true,
		DecodeHook:        mapstructure.DecodeHookFuncType(strictHook),
		Result:            out,
	})
	if err != nil {
		return &DecodeError{Detail: what + ": decoder setup", Err: err}
	}
	if err := dec.Decode(markNulls(doc)); err != nil {
		return &DecodeError{Detail: what + ": schema mismatch", Err: err}
	}
	return nil
}

// jsonNull stands in for a JSON null. mapstructure skips nil input before
// any hook runs, which would let a null satisfy a required field.
type jsonNull struct{}

func markNulls(v any) any {
	switch t := v.(type) {
	case nil:
		return jsonNull{}
	case map[string]any:
		for k, e := range t {
			t[k] = markNulls(e)
		}
	case []any:
		for i, e := range t {
			t[i] = markNulls(e)
		}
	}
	return v
}

// strictHook accepts null only for pointer fields and refuses to truncate
// fractional numbers into integers.
func strictHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	switch v := data.(type) {
	case jsonNull:
		if to.Kind() == reflect.Pointer {
			return nil, nil
		}
		return nil, fmt.Errorf("null where %s is required", to)
	case float64:
		switch to.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			if v != math.Trunc(v) {
				return nil, fmt.Errorf("%v is not an integer", v)
			}
		}
	}
	return data, nil
}
