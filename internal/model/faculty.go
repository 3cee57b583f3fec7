package model

import "gorm.io/gorm"

// Faculty 教员表：对应 faculty
type Faculty struct {
	FacultyID string `gorm:"type:uuid;primaryKey"                          json:"faculty_id"`
	Name      string `gorm:"type:varchar(100);not null"                    json:"name"`
	Email     string `gorm:"type:varchar(255);not null"                    json:"email"`
	Role      string `gorm:"type:varchar(20);not null;default:'faculty'"   json:"role"` // faculty | coordinator
	IsActive  bool   `gorm:"not null"                                      json:"is_active"`
	BaseModel
}

// TableName 指定表名
func (Faculty) TableName() string { return "faculty" }

// BeforeCreate 生成主键
func (f *Faculty) BeforeCreate(_ *gorm.DB) error {
	if f.FacultyID == "" {
		f.FacultyID = newID()
	}
	return nil
}
