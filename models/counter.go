package models

// Counter is a named monotonic sequence, e.g. {name: "posts", count: 42}.
type Counter struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Name  string `gorm:"size:64;not null;uniqueIndex" json:"name"`
	Count int64  `gorm:"not null;default:0" json:"count"`
}

// All lists every model for auto-migration.
func All() []interface{} {
	return []interface{}{&User{}, &Post{}, &Comment{}, &File{}, &Counter{}}
}
