package domain

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/dukerupert/fulfillment/internal/statemachine"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// phoneShape accepts an optional leading + and digit groups separated by a
// single space, dot or dash.
var phoneShape = regexp.MustCompile(`^\+?[0-9]+(?:[ .\-][0-9]+)*$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return IsPhone(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// Validator returns the validator used for order input, with the "phone"
// rule registered and fields named by their json tags. Request decoders
// reuse it for their struct tags.
func Validator() *validator.Validate {
	return validate
}

// IsPhone reports whether s looks like a phone number with 10 to 15 digits.
func IsPhone(s string) bool {
	if !phoneShape.MatchString(s) {
		return false
	}
	digits := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= 10 && digits <= 15
}

// IsEmail reports whether s is a syntactically valid email address.
func IsEmail(s string) bool {
	return validate.Var(s, "email") == nil
}

// ValidateOrder checks every rule and returns a ValidatedOrder, or an
// InvalidOrder listing all failures at once.
func ValidateOrder(in UnvalidatedOrder) Order {
	var reasons []string
	fail := func(format string, args ...any) {
		reasons = append(reasons, fmt.Sprintf(format, args...))
	}

	var requested uuid.UUID
	if id := strings.TrimSpace(in.OrderID); id != "" {
		parsed, err := uuid.Parse(id)
		if err != nil {
			fail("order id %q is not a valid UUID", id)
		} else {
			requested = parsed
		}
	}

	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		fail("user id is required")
	}

	address := Address{
		Street:     strings.TrimSpace(in.Street),
		City:       strings.TrimSpace(in.City),
		PostalCode: strings.TrimSpace(in.PostalCode),
	}
	pickupPoint := strings.TrimSpace(in.PickupPointID)

	pickup := PickupMethod(strings.TrimSpace(in.PickupMethod))
	switch pickup {
	case HomeDelivery:
		if address.Street == "" {
			fail("street is required for home delivery")
		}
		if address.City == "" {
			fail("city is required for home delivery")
		}
		if address.PostalCode == "" {
			fail("postal code is required for home delivery")
		}
		if pickupPoint != "" {
			fail("pickup point id must not be set for home delivery")
		}
	case EasyBoxPickup, PostOfficePickup:
		if pickupPoint == "" {
			fail("pickup point id is required for %s", pickup)
		}
		address = Address{}
	default:
		fail("pickup method %q is not supported", in.PickupMethod)
	}

	payment := PaymentMethod(strings.TrimSpace(in.PaymentMethod))
	if !payment.IsValid() {
		fail("payment method %q is not supported", in.PaymentMethod)
	}

	phone := strings.TrimSpace(in.Phone)
	switch {
	case phone == "":
		fail("phone is required")
	case !IsPhone(phone):
		fail("phone %q is not a valid phone number", phone)
	}

	email := strings.TrimSpace(in.Email)
	if email != "" && !IsEmail(email) {
		fail("email %q is not a valid email address", email)
	}

	if len(in.Lines) == 0 {
		fail("order must contain at least one line")
	}

	lines := make([]OrderLine, 0, len(in.Lines))
	for i, l := range in.Lines {
		n := i + 1
		name := strings.TrimSpace(l.Name)
		if name == "" {
			fail("line %d: name is required", n)
		}
		if l.Quantity < 1 {
			fail("line %d: quantity must be at least 1", n)
		}
		if !l.UnitPrice.IsPositive() {
			fail("line %d: unit price must be greater than 0", n)
		}
		lines = append(lines, OrderLine{
			Name:        name,
			Description: strings.TrimSpace(l.Description),
			Category:    strings.TrimSpace(l.Category),
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			LineTotal:   l.UnitPrice.Times(l.Quantity),
		})
	}

	if len(reasons) > 0 {
		statemachine.Must[OrderState](in, OrderStateInvalid)
		return InvalidOrder{UserID: userID, Reasons: reasons}
	}

	statemachine.Must[OrderState](in, OrderStateValidated)
	return ValidatedOrder{OrderDetails: OrderDetails{
		RequestedID:         requested,
		UserID:              userID,
		PremiumSubscription: in.PremiumSubscription,
		Lines:               lines,
		Address:             address,
		Phone:               phone,
		Email:               email,
		PickupMethod:        pickup,
		PickupPointID:       pickupPoint,
		PaymentMethod:       payment,
		VoucherCode:         in.VoucherCode,
	}}
}
