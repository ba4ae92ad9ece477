package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kjannette/chart-cache/internal/apperr"
)

// ChartPointInput and ChartPayloadInput mirror the wire shape with pointer
// fields so a missing key or a null price can be told apart from a zero value.
type ChartPointInput struct {
	Timestamp *int64              `json:"timestamp" msgpack:"timestamp" cbor:"timestamp" validate:"required"`
	Prices    map[string]*float64 `json:"prices" msgpack:"prices" cbor:"prices" validate:"required,dive,required"`
}

type ChartPayloadInput struct {
	BasketID *string           `json:"basketId" msgpack:"basketId" cbor:"basketId" validate:"required"`
	Data     []ChartPointInput `json:"data" msgpack:"data" cbor:"data" validate:"required,dive"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Payload checks the structural shape and returns the domain value.
// Failures wrap apperr.ErrValidation.
func (in *ChartPayloadInput) Payload() (*ChartPayload, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: body is required", apperr.ErrValidation)
	}
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %s", apperr.ErrValidation, describe(err))
	}

	out := &ChartPayload{
		BasketID: *in.BasketID,
		Data:     make([]ChartPoint, len(in.Data)),
	}
	for i, p := range in.Data {
		prices := make(map[string]float64, len(p.Prices))
		for sym, v := range p.Prices {
			// msgpack and CBOR can carry NaN and Inf; JSON storage cannot.
			if math.IsNaN(*v) || math.IsInf(*v, 0) {
				return nil, fmt.Errorf("%w: data[%d].prices[%s] must be a finite number", apperr.ErrValidation, i, sym)
			}
			prices[sym] = *v
		}
		out.Data[i] = ChartPoint{Timestamp: *p.Timestamp, Prices: prices}
	}
	return out, nil
}

// Decode parses the stored payload. A row that no longer matches the chart
// shape is reported as apperr.ErrCorruptData.
func (r *ChartRecord) Decode() (*ChartPayload, error) {
	var in ChartPayloadInput
	if err := json.Unmarshal([]byte(r.Payload), &in); err != nil {
		return nil, fmt.Errorf("%w: %s/%d: %v", apperr.ErrCorruptData, r.BasketID, r.Year, err)
	}
	p, err := in.Payload()
	if err != nil {
		return nil, fmt.Errorf("%w: %s/%d: %v", apperr.ErrCorruptData, r.BasketID, r.Year, err)
	}
	return p, nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		msgs = append(msgs, field+" is "+fe.Tag())
	}
	return strings.Join(msgs, "; ")
}
