package dao

import "gorm.io/gorm"

// InitTables 建表，生产环境由 DBA 执行 DDL，这里只用于本地开发和测试
func InitTables(db *gorm.DB) error {
	return db.AutoMigrate(
		&Patient{},
		&PatientPreference{},
		&PatientConsent{},
		&Notification{},
		&Escalation{},
	)
}
