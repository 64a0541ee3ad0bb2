package types

import (
	"fmt"
	"math"
	"strconv"
)

// Flat field names shared by the remote store, the Redis hash and the Mongo document.
const (
	FieldIsActive             = "is_active"
	FieldTier                 = "tier"
	FieldPeriod               = "period"
	FieldStatus               = "status"
	FieldStartTimeMillis      = "start_time_millis"
	FieldExpiryTimeMillis     = "expiry_time_millis"
	FieldGracePeriodEndMillis = "grace_period_end_millis"
	FieldAccountHoldEndMillis = "account_hold_end_millis"
	FieldWillAutoRenew        = "will_auto_renew"
	FieldProductID            = "product_id"
	FieldPurchaseToken        = "purchase_token"
	FieldBasePlanID           = "base_plan_id"
)

var RecordFieldNames = []string{
	FieldIsActive,
	FieldTier,
	FieldPeriod,
	FieldStatus,
	FieldStartTimeMillis,
	FieldExpiryTimeMillis,
	FieldGracePeriodEndMillis,
	FieldAccountHoldEndMillis,
	FieldWillAutoRenew,
	FieldProductID,
	FieldPurchaseToken,
	FieldBasePlanID,
}

// Fields flattens the record for merge-writes. Every field is always present so a
// merge fully replaces the previous record.
func (r *SubscriptionRecord) Fields() map[string]any {
	return map[string]any{
		FieldIsActive:             r.IsActive,
		FieldTier:                 string(r.Tier),
		FieldPeriod:               string(r.Period),
		FieldStatus:               string(r.Status),
		FieldStartTimeMillis:      r.StartTimeMillis,
		FieldExpiryTimeMillis:     r.ExpiryTimeMillis,
		FieldGracePeriodEndMillis: r.GracePeriodEndMillis,
		FieldAccountHoldEndMillis: r.AccountHoldEndMillis,
		FieldWillAutoRenew:        r.WillAutoRenew,
		FieldProductID:            r.ProductID,
		FieldPurchaseToken:        r.PurchaseToken,
		FieldBasePlanID:           r.BasePlanID,
	}
}

// StringFields is Fields with every value rendered as a string, for hash stores.
func (r *SubscriptionRecord) StringFields() map[string]string {
	out := make(map[string]string, len(RecordFieldNames))
	for k, v := range r.Fields() {
		switch val := v.(type) {
		case bool:
			out[k] = strconv.FormatBool(val)
		case int64:
			out[k] = strconv.FormatInt(val, 10)
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out
}

// RecordFromFields rebuilds a record from a flat map. Unknown keys are ignored and
// missing keys keep the inactive defaults.
func RecordFromFields(fields map[string]any) (SubscriptionRecord, error) {
	r := Inactive()
	for key, raw := range fields {
		var err error
		switch key {
		case FieldIsActive:
			r.IsActive, err = asBool(raw)
		case FieldWillAutoRenew:
			r.WillAutoRenew, err = asBool(raw)
		case FieldTier:
			r.Tier = Tier(asString(raw))
		case FieldPeriod:
			r.Period = Period(asString(raw))
		case FieldStatus:
			r.Status = SubscriptionStatus(asString(raw))
		case FieldStartTimeMillis:
			r.StartTimeMillis, err = asInt64(raw)
		case FieldExpiryTimeMillis:
			r.ExpiryTimeMillis, err = asInt64(raw)
		case FieldGracePeriodEndMillis:
			r.GracePeriodEndMillis, err = asInt64(raw)
		case FieldAccountHoldEndMillis:
			r.AccountHoldEndMillis, err = asInt64(raw)
		case FieldProductID:
			r.ProductID = asString(raw)
		case FieldPurchaseToken:
			r.PurchaseToken = asString(raw)
		case FieldBasePlanID:
			r.BasePlanID = asString(raw)
		}
		if err != nil {
			return Inactive(), fmt.Errorf("invalid field %s: %w", key, err)
		}
	}
	return r, nil
}

// RecordFromStringFields is RecordFromFields for hash stores.
func RecordFromStringFields(fields map[string]string) (SubscriptionRecord, error) {
	m := make(map[string]any, len(fields))
	for k, v := range fields {
		m[k] = v
	}
	return RecordFromFields(m)
}

func asString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}

func asBool(v any) (bool, error) {
	switch val := v.(type) {
	case nil:
		return false, nil
	case bool:
		return val, nil
	case string:
		if val == "" {
			return false, nil
		}
		return strconv.ParseBool(val)
	case int64:
		return val != 0, nil
	case int32:
		return val != 0, nil
	case int:
		return val != 0, nil
	}
	return false, fmt.Errorf("unsupported bool encoding %T", v)
}

func asInt64(v any) (int64, error) {
	switch val := v.(type) {
	case nil:
		return 0, nil
	case int64:
		return val, nil
	case int32:
		return int64(val), nil
	case int:
		return int64(val), nil
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return 0, fmt.Errorf("non-finite number")
		}
		return int64(val), nil
	case string:
		if val == "" {
			return 0, nil
		}
		return strconv.ParseInt(val, 10, 64)
	}
	return 0, fmt.Errorf("unsupported integer encoding %T", v)
}
