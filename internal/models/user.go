package models

// User represents an authenticated storefront customer.
type User struct {
	BaseModel
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `gorm:"uniqueIndex" json:"email"`
	Phone        string `json:"phone"`
	PasswordHash string `json:"-"`

	// Points is the loyalty balance in rupiah-equivalent points. It is only
	// ever mutated through guarded atomic updates, never read-modify-write.
	Points int64 `json:"points"`

	// Cart is the authoritative server-side cart; local clients mirror it.
	Cart CartLines `gorm:"type:jsonb" json:"cart"`

	// CheckoutItems is the staging snapshot taken by BeginCheckout. It does
	// not flow back into Cart if the checkout is abandoned.
	CheckoutItems CartLines `gorm:"type:jsonb" json:"checkout_items"`

	// LastCheckInDate is the ISO date (YYYY-MM-DD) of the most recent daily
	// check-in, empty when the user has never checked in.
	LastCheckInDate string `json:"last_check_in_date"`
	// CheckInStreak counts consecutive daily check-ins, 1 through 7.
	CheckInStreak int `json:"check_in_streak"`
}
