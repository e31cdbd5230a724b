package main

import (
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-pricing/internal/domain/coupon"
)

var hundred = decimal.NewFromInt(100)

// parseRecord decodes one JSON line into a coupon. Codes are upper-cased;
// status defaults to active.
func parseRecord(line []byte) (coupon.Coupon, error) {
	c := coupon.Coupon{Status: coupon.StatusActive}

	d := jx.DecodeBytes(line)
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		if d.Next() == jx.Null {
			return d.Null()
		}
		switch string(key) {
		case "code":
			v, err := d.Str()
			c.Code = strings.ToUpper(strings.TrimSpace(v))
			return err
		case "type":
			v, err := d.Str()
			c.Type = coupon.Type(v)
			return err
		case "value":
			num, err := d.Num()
			if err != nil {
				return err
			}
			c.Value, err = decimal.NewFromString(num.String())
			return err
		case "status":
			v, err := d.Str()
			c.Status = coupon.Status(v)
			return err
		case "description":
			v, err := d.Str()
			c.Description = v
			return err
		case "usageLimit":
			v, err := d.Int()
			c.UsageLimit = &v
			return err
		case "timesUsed":
			v, err := d.Int()
			c.TimesUsed = v
			return err
		case "validFrom":
			return decodeTime(d, &c.ValidFrom)
		case "validTo":
			return decodeTime(d, &c.ValidTo)
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return coupon.Coupon{}, errors.Wrap(err, "decode")
	}
	return c, validateRecord(c)
}

func decodeTime(d *jx.Decoder, dst **time.Time) error {
	v, err := d.Str()
	if err != nil {
		return err
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return err
	}
	*dst = &t
	return nil
}

func validateRecord(c coupon.Coupon) error {
	if c.Code == "" {
		return errors.New("code is required")
	}
	switch c.Type {
	case coupon.TypeFixed:
	case coupon.TypePercentage:
		if c.Value.GreaterThan(hundred) {
			return errors.Errorf("coupon %s: percentage %s exceeds 100", c.Code, c.Value)
		}
	default:
		return errors.Errorf("coupon %s: unknown type %q", c.Code, c.Type)
	}
	if c.Value.IsNegative() {
		return errors.Errorf("coupon %s: negative value", c.Code)
	}
	switch c.Status {
	case coupon.StatusActive, coupon.StatusInactive, coupon.StatusExpired:
	default:
		return errors.Errorf("coupon %s: unknown status %q", c.Code, c.Status)
	}
	if c.UsageLimit != nil && *c.UsageLimit < 0 {
		return errors.Errorf("coupon %s: negative usage limit", c.Code)
	}
	if c.ValidFrom != nil && c.ValidTo != nil && c.ValidTo.Before(*c.ValidFrom) {
		return errors.Errorf("coupon %s: validTo before validFrom", c.Code)
	}
	return nil
}
