package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// CouponKind 补偿券种类
type CouponKind string

const (
	CouponFocaccia  CouponKind = "FOCACCIA"
	CouponTopping1  CouponKind = "TOPPING1"
	CouponToppings2 CouponKind = "TOPPINGS2"
	CouponDessert   CouponKind = "DESSERT"
	CouponCredit    CouponKind = "CREDIT"
)

// CurrencySymbol 唯一支持的币种
const CurrencySymbol = "₪"

var couponLabels = map[CouponKind]string{
	CouponFocaccia:  "Focaccia of choice",
	CouponTopping1:  "1 topping of choice",
	CouponToppings2: "2 toppings of choice",
	CouponDessert:   "Dessert of choice",
	CouponCredit:    "Credit amount",
}

// CatalogVariant 不同门店部署提供的券种组合
type CatalogVariant string

const (
	VariantTwoToppings  CatalogVariant = "two_toppings"
	VariantOneTopping   CatalogVariant = "one_topping"
	VariantBothToppings CatalogVariant = "both_toppings"
)

var variantKinds = map[CatalogVariant][]CouponKind{
	VariantTwoToppings:  {CouponFocaccia, CouponToppings2, CouponDessert, CouponCredit},
	VariantOneTopping:   {CouponFocaccia, CouponTopping1, CouponDessert, CouponCredit},
	VariantBothToppings: {CouponFocaccia, CouponTopping1, CouponToppings2, CouponDessert, CouponCredit},
}

// Valid 是否是已知的组合
func (v CatalogVariant) Valid() bool {
	_, ok := variantKinds[v]
	return ok
}

// CompensationPolicy 部署差异统一收敛到这一处配置，而不是维护多份实现
type CompensationPolicy struct {
	RequireReasonAndApprover bool
	CatalogVariant           CatalogVariant
}

// CouponOption 供前端渲染的券种选项
type CouponOption struct {
	Kind        CouponKind `json:"kind"`
	Label       string     `json:"label"`
	NeedsAmount bool       `json:"needs_amount"`
}

// Catalog 固定、有序的券种目录
type Catalog struct {
	variant CatalogVariant
	kinds   []CouponKind
}

// NewCatalog 按部署组合创建目录
func NewCatalog(variant CatalogVariant) (*Catalog, error) {
	kinds, ok := variantKinds[variant]
	if !ok {
		return nil, fmt.Errorf("未知的券种组合: %q", variant)
	}
	return &Catalog{variant: variant, kinds: kinds}, nil
}

// Variant 当前组合
func (c *Catalog) Variant() CatalogVariant {
	return c.variant
}

// Options 按固定顺序返回可选券种
func (c *Catalog) Options() []CouponOption {
	opts := make([]CouponOption, 0, len(c.kinds))
	for _, k := range c.kinds {
		opts = append(opts, CouponOption{
			Kind:        k,
			Label:       couponLabels[k],
			NeedsAmount: k == CouponCredit,
		})
	}
	return opts
}

// Offers 当前组合是否提供该券种
func (c *Catalog) Offers(kind CouponKind) bool {
	for _, k := range c.kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Encode 把选择的券种（以及 CREDIT 的金额）渲染成落库的展示字符串。
// 落库后只保留这个字符串，种类和金额无法再从记录中还原。
func (c *Catalog) Encode(kind CouponKind, amount string) (string, error) {
	if kind == "" || !c.Offers(kind) {
		return "", ErrInvalidCoupon
	}
	if kind != CouponCredit {
		return couponLabels[kind], nil
	}

	value, err := ParseCreditAmount(amount)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s: %s%s", couponLabels[CouponCredit], CurrencySymbol, value.String()), nil
}

// AmountText 金额的原始输入。JSON 中数字和字符串都接受，是否合法交给 ParseCreditAmount 判断
type AmountText string

func (a *AmountText) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*a = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = AmountText(s)
		return nil
	}
	// 数字或其他字面量按原文保留
	*a = AmountText(b)
	return nil
}

// ParseCreditAmount 金额必须可解析且严格大于 0
func ParseCreditAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !value.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return value, nil
}
