package controller

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// statsPath holds the date segments of the stats routes.
type statsPath struct {
	Start string `validate:"required,datetime=2006-01-02"`
	End   string `validate:"omitempty,datetime=2006-01-02"`
}

func parseStatsPath(r *http.Request) (statsPath, error) {
	q := statsPath{
		Start: strings.TrimSpace(r.PathValue("start")),
		End:   strings.TrimSpace(r.PathValue("end")),
	}
	if err := validate.Struct(q); err != nil {
		return statsPath{}, describeValidation(err)
	}
	return q, nil
}

func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	if fe.Tag() == "required" {
		return fmt.Errorf("missing '%s' date", field)
	}
	return fmt.Errorf("invalid '%s' %q (expected YYYY-MM-DD)", field, fe.Value())
}
