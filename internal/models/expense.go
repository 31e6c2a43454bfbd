package models

import "time"

// Expense represents a financial expense record owned by a user.
type Expense struct {
	ID          int64     `json:"id"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	Date        time.Time `json:"date"`
	Category    string    `json:"category"`
	Subcategory *string   `json:"subcategory,omitempty"`
	UserID      int64     `json:"user_id"`
}

// NewExpense holds the fields supplied when recording an expense.
// A zero Date is replaced with the current UTC time on insert.
type NewExpense struct {
	Description string
	Amount      float64
	Date        time.Time
	Category    string
	Subcategory *string
	UserID      int64
}

// CategoryTotal is the amount spent in one category over a period.
type CategoryTotal struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
	Count    int     `json:"count"`
}
