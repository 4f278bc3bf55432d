package model

// Sample is the demo CRUD resource.
type Sample struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	Name        string  `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Description *string `gorm:"type:text" json:"description"`
	Auditable
}

func (Sample) TableName() string {
	return "sample_sample"
}

// SampleQuery narrows a sample listing.
type SampleQuery struct {
	Search   string
	Ordering string
	Limit    int
	Offset   int
}
