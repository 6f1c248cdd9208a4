package validator

import (
	"time"
	_ "time/tzdata"

	"github.com/Badsnus/outage-alerts/internal/domain/entity"
	playground "github.com/go-playground/validator/v10"
)

// New returns a validator with the project's custom tags registered:
//
//   - timezone: an IANA zone name accepted by time.LoadLocation
//   - ledgerkey: a notification ledger key ("content" or "outage-id")
func New() *playground.Validate {
	v := playground.New()
	_ = v.RegisterValidation("timezone", Timezone)
	_ = v.RegisterValidation("ledgerkey", LedgerKey)
	return v
}

func Timezone(fl playground.FieldLevel) bool {
	name := fl.Field().String()
	if name == "" {
		return false
	}
	_, err := time.LoadLocation(name)
	return err == nil
}

func LedgerKey(fl playground.FieldLevel) bool {
	_, err := entity.ParseLedgerKey(fl.Field().String())
	return err == nil
}
