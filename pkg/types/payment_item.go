package types

type PaymentProvider string

const (
	PaymentProviderApple  PaymentProvider = "apple"
	PaymentProviderGoogle PaymentProvider = "google"
)

type ProductType string

const (
	ProductTypeAutoRenewable ProductType = "auto_renewable_subscription"
	ProductTypeNonRenewable  ProductType = "non_renewable_subscription"
	ProductTypeConsumable    ProductType = "consumable"
	ProductTypeNonConsumable ProductType = "non_consumable"
)

func (t ProductType) Renewable() bool {
	return t == ProductTypeAutoRenewable
}

// ProductDetails is the store metadata of a sellable product, as loaded from the catalog.
type ProductDetails struct {
	ProductID      string          `json:"product_id" mapstructure:"product_id"`
	ProviderID     PaymentProvider `json:"provider_id" mapstructure:"provider_id"`
	Type           ProductType     `json:"type" mapstructure:"type"`
	FormattedPrice string          `json:"formatted_price" mapstructure:"formatted_price"`
	// PriceMicros is the price in millionths of the currency unit.
	PriceMicros  int64  `json:"price_micros" mapstructure:"price_micros"`
	CurrencyCode string `json:"currency_code" mapstructure:"currency_code"`
	// BasePlanID is set for Google Play products whose period lives on the base plan.
	BasePlanID string `json:"base_plan_id" mapstructure:"base_plan_id"`
}

// PriceQuote is a display aid; staleness is acceptable.
type PriceQuote struct {
	ProductID      string `json:"product_id"`
	Period         Period `json:"period"`
	Tier           Tier   `json:"tier"`
	FormattedPrice string `json:"formatted_price"`
	PriceMicros    int64  `json:"price_micros"`
	CurrencyCode   string `json:"currency_code"`
	// SavingsPercent is nil when the tier has no weekly baseline.
	SavingsPercent *float64 `json:"savings_percent"`
}

// PriceKey is the cache key of a quote: "productId|period".
func PriceKey(productID string, period Period) string {
	return productID + "|" + string(period)
}

func (q *PriceQuote) Key() string {
	return PriceKey(q.ProductID, q.Period)
}
