package http

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"bikeshare/internal/core"
	"bikeshare/internal/services"
)

// RangeParams are the raw start/end query values. Resolution against the
// dataset bounds happens in the dashboard service.
type RangeParams struct {
	Start string
	End   string
}

func ParseRangeParams(query url.Values) RangeParams {
	return RangeParams{
		Start: strings.TrimSpace(query.Get("start")),
		End:   strings.TrimSpace(query.Get("end")),
	}
}

// AggregateRequest is the query of GET /api/v1/aggregate.
type AggregateRequest struct {
	Dataset string   `json:"dataset" validate:"required,oneof=daily hourly"`
	By      []string `json:"by" validate:"min=1,max=2,unique,dive,oneof=year month season hour_group weather_situation"`
	Measure string   `json:"measure" validate:"omitempty,oneof=total_count casual registered"`
	Start   string   `json:"start" validate:"omitempty,datetime=2006-01-02"`
	End     string   `json:"end" validate:"omitempty,datetime=2006-01-02"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report query parameter names, not Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ParseAggregateRequest reads and validates the aggregate query. On failure
// the returned details list one message per offending parameter.
func ParseAggregateRequest(query url.Values) (AggregateRequest, []string, error) {
	req := AggregateRequest{
		Dataset: strings.TrimSpace(query.Get("dataset")),
		Measure: strings.TrimSpace(query.Get("measure")),
		Start:   strings.TrimSpace(query.Get("start")),
		End:     strings.TrimSpace(query.Get("end")),
	}
	for _, raw := range query["by"] {
		for _, k := range strings.Split(raw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				req.By = append(req.By, k)
			}
		}
	}

	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return req, nil, err
		}
		details := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, formatValidationError(fe))
		}
		return req, details, errInvalidRequest
	}
	return req, nil, nil
}

var errInvalidRequest = errors.New("invalid request")

// Query converts the request into a service query over rng.
func (r AggregateRequest) Query(rng core.DateRange) services.AggregateQuery {
	return services.AggregateQuery{
		Dataset: r.Dataset,
		By:      r.By,
		Measure: core.Measure(r.Measure),
		Range:   rng,
	}
}

func formatValidationError(fe validator.FieldError) string {
	field := fe.Field()
	param := fe.Param()

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s needs at least %s key", field, param)
	case "max":
		return fmt.Sprintf("%s accepts at most %s keys", field, param)
	case "unique":
		return fmt.Sprintf("%s must not repeat a key", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "datetime":
		return fmt.Sprintf("%s must be a date in YYYY-MM-DD format", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
