package db

// Token is the single persisted credential row.
// The table only ever holds the row with ID 1.
type Token struct {
	ID           uint   `gorm:"primaryKey"`
	AccessToken  string `gorm:"not null"`
	RefreshToken string
	ExpiresAt    int64 `gorm:"not null"`
	TokenType    string
}
