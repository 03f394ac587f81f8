package analysis

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"reflect"
	"strconv"
	"strings"

	"github.com/SanchitCoder/PortIQ/internal/usage"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
)

const (
	maxSymbolLength   = 20
	maxPortfolioSize  = 25
	maxAnalysisLength = 5000
)

var (
	validate  = newValidator()
	sanitizer = bluemonday.StrictPolicy()
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Request is one feature invocation as submitted by the user.
type Request interface {
	Feature() usage.Feature
	// Payload validates the input and returns the body sent to the webhook.
	Payload() (any, error)
}

// cleanText strips markup and surrounding whitespace from user text.
func cleanText(s string) string {
	return strings.TrimSpace(html.UnescapeString(sanitizer.Sanitize(strings.TrimSpace(s))))
}

func normalizeSymbol(s string) string {
	return strings.ToUpper(cleanText(s))
}

func check(payload any, messageFor func(validator.FieldError) string) error {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return &ValidationError{Field: verrs[0].Field(), Message: messageFor(verrs[0])}
	}
	return &ValidationError{Message: err.Error()}
}

type StockRequest struct {
	Stock string `json:"stock"`
}

type StockPayload struct {
	Stock string `json:"stock" validate:"required,max=20"`
}

func (r StockRequest) Feature() usage.Feature { return usage.FeatureStockAnalyzer }

func (r StockRequest) Payload() (any, error) {
	p := StockPayload{Stock: normalizeSymbol(r.Stock)}
	err := check(p, func(fe validator.FieldError) string {
		if fe.Tag() == "max" {
			return fmt.Sprintf("Stock symbol must be at most %d characters", maxSymbolLength)
		}
		return "Please enter a stock symbol"
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

type PortfolioRequest struct {
	Stocks []string `json:"stocks"`
}

type PortfolioPayload struct {
	Stocks []string `json:"stocks" validate:"required,min=1,max=25,unique,dive,max=20"`
}

func (r PortfolioRequest) Feature() usage.Feature { return usage.FeaturePortfolioMonitor }

// Payload normalizes each symbol and drops blank entries. Duplicates are
// rejected after normalization, so "aapl" and "AAPL " collide.
func (r PortfolioRequest) Payload() (any, error) {
	var stocks []string
	for _, s := range r.Stocks {
		if sym := normalizeSymbol(s); sym != "" {
			stocks = append(stocks, sym)
		}
	}

	p := PortfolioPayload{Stocks: stocks}
	err := check(p, func(fe validator.FieldError) string {
		if fe.Field() != "stocks" {
			return fmt.Sprintf("Stock symbols must be at most %d characters", maxSymbolLength)
		}
		switch fe.Tag() {
		case "unique":
			return "This stock is already in your list"
		case "max":
			return fmt.Sprintf("A portfolio can hold at most %d stocks", maxPortfolioSize)
		default:
			return "Please add at least one stock"
		}
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// NumberInput accepts a JSON number or a numeric string.
type NumberInput string

func (n *NumberInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*n = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = NumberInput(strings.TrimSpace(s))
	default:
		f, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("invalid number %s", data)
		}
		*n = NumberInput(strconv.FormatFloat(f, 'f', -1, 64))
	}
	return nil
}

type EvaluatorRequest struct {
	CurrentPrice     NumberInput `json:"currentPrice"`
	BuyPosition      NumberInput `json:"buyPosition"`
	DetailedAnalysis string      `json:"detailedAnalysis"`
}

type evaluatorInput struct {
	CurrentPrice     string `json:"currentPrice" validate:"required,numeric"`
	BuyPosition      string `json:"buyPosition" validate:"required,numeric"`
	DetailedAnalysis string `json:"detailedAnalysis" validate:"required,max=5000"`
}

type EvaluatorPayload struct {
	CurrentPrice     float64 `json:"currentPrice"`
	BuyPosition      float64 `json:"buyPosition"`
	DetailedAnalysis string  `json:"detailedAnalysis"`
}

func (r EvaluatorRequest) Feature() usage.Feature { return usage.FeatureAlphaEdgeEvaluator }

func (r EvaluatorRequest) Payload() (any, error) {
	in := evaluatorInput{
		CurrentPrice:     strings.TrimSpace(string(r.CurrentPrice)),
		BuyPosition:      strings.TrimSpace(string(r.BuyPosition)),
		DetailedAnalysis: cleanText(r.DetailedAnalysis),
	}
	err := check(in, func(fe validator.FieldError) string {
		switch fe.Tag() {
		case "numeric":
			if fe.Field() == "currentPrice" {
				return "Current price must be a number"
			}
			return "Buy position must be a number"
		case "max":
			return fmt.Sprintf("Detailed analysis must be at most %d characters", maxAnalysisLength)
		default:
			return "Please fill in all fields"
		}
	})
	if err != nil {
		return nil, err
	}

	price, err := strconv.ParseFloat(in.CurrentPrice, 64)
	if err != nil {
		return nil, &ValidationError{Field: "currentPrice", Message: "Current price must be a number"}
	}
	position, err := strconv.ParseFloat(in.BuyPosition, 64)
	if err != nil {
		return nil, &ValidationError{Field: "buyPosition", Message: "Buy position must be a number"}
	}

	return EvaluatorPayload{
		CurrentPrice:     price,
		BuyPosition:      position,
		DetailedAnalysis: in.DetailedAnalysis,
	}, nil
}
