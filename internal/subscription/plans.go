package subscription

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUnknownPlan = errors.New("unknown plan")
	ErrFreePlan    = errors.New("free plan cannot be activated")
)

type Plan struct {
	ID          PlanID `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	PricePaise  int64  `json:"price_paise"`
	Currency    string `json:"currency"`
	Months      int    `json:"months"`
}

func Plans() []Plan {
	return []Plan{
		{
			ID:          PlanMonthly,
			Name:        "Monthly",
			Description: "Unlimited access to every analysis tool, billed monthly",
			PricePaise:  49900,
			Currency:    "INR",
			Months:      1,
		},
		{
			ID:          PlanQuarterly,
			Name:        "Quarterly",
			Description: "Unlimited access for three months",
			PricePaise:  129900,
			Currency:    "INR",
			Months:      3,
		},
		{
			ID:          PlanYearly,
			Name:        "Yearly",
			Description: "Unlimited access for a full year",
			PricePaise:  499900,
			Currency:    "INR",
			Months:      12,
		},
	}
}

// FindPlan looks up a paid plan. The free tier is not in the catalog.
func FindPlan(id PlanID) (Plan, error) {
	if id == PlanFree {
		return Plan{}, ErrFreePlan
	}
	for _, p := range Plans() {
		if p.ID == id {
			return p, nil
		}
	}
	return Plan{}, ErrUnknownPlan
}

func (p Plan) EndDate(start time.Time) time.Time {
	return start.AddDate(0, p.Months, 0)
}

// DisplayPrice formats the price in major units, e.g. "INR 499.00".
func (p Plan) DisplayPrice() string {
	return fmt.Sprintf("%s %d.%02d", p.Currency, p.PricePaise/100, p.PricePaise%100)
}
