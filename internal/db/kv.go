package db

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetKV zwraca wartość albo "" gdy klucza brak.
func GetKV(gdb *gorm.DB, k string) (string, error) {
	var row KV
	err := gdb.Where("k = ?", k).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return row.V, nil
}

func SetKV(gdb *gorm.DB, k, v string) error {
	return gdb.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "k"}},
		DoUpdates: clause.AssignmentColumns([]string{"v"}),
	}).Create(&KV{K: k, V: v}).Error
}
