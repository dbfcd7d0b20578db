// Package order persists fulfilled checkouts and serves order history.
package order

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/trendora/platform/events"
)

// LineItems stores the purchased products as a JSON column.
type LineItems []events.LineItem

// Value implements driver.Valuer.
func (l LineItems) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	return string(b), err
}

// Scan implements sql.Scanner.
func (l *LineItems) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	case nil:
		return nil
	default:
		return fmt.Errorf("unsupported column type %T", value)
	}
}

// Order is one fulfilled checkout. SessionID carries the checkout session
// id and is unique: at-least-once delivery of payment.successful may hand
// the same session to the store twice, and the unique index is what
// guarantees a single order survives.
type Order struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID string    `gorm:"uniqueIndex;not null" json:"sessionId"`
	UserID    string    `gorm:"index;not null" json:"userId"`
	Email     *string   `json:"email"`
	Amount    int64     `json:"amount"`
	Status    string    `json:"status"`
	Products  LineItems `gorm:"type:text" json:"products"`
	CreatedAt time.Time `json:"createdAt"`
}
