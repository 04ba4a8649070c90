package models

// User is the single durable identity record. GoogleID and PasswordHash are
// pointers so the unique constraint on google_id only applies to non-null
// values: an account created through Google login has no password hash, a
// local account has no google id, but every account has at least one of the
// two.
type User struct {
	ID           uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	PublicID     string  `gorm:"size:36;unique;not null"  json:"public_id"`
	Username     string  `gorm:"size:80;unique;not null"  json:"username"`
	Email        string  `gorm:"size:120;unique;not null" json:"email"`
	GoogleID     *string `gorm:"size:255;unique"          json:"-"`
	PasswordHash *string `gorm:"size:255"                 json:"-"`
	StoragePath  string  `gorm:"size:255;unique;not null" json:"-"`
}
