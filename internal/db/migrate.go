package db

import (
	"fmt"
)

// Migrate tworzy/aktualizuje schemat bazy.
// link_issues jest przebudowywane po każdej synchronizacji, więc
// przed AutoMigrate czyścimy je do zera (stare duplikaty blokowały indeks).
func (h *Handle) Migrate() error {
	gdb := h.DB

	if gdb.Migrator().HasTable(&LinkIssue{}) {
		if err := gdb.Where("1=1").Delete(&LinkIssue{}).Error; err != nil {
			return fmt.Errorf("purge link_issues failed: %w", err)
		}
	}

	if err := gdb.AutoMigrate(
		&ProductLink{},
		&MediaAsset{},
		&OrderForward{},
		&SyncRun{},
		&LinkIssue{},
		&KV{},
	); err != nil {
		return fmt.Errorf("AutoMigrate error: %w", err)
	}
	return nil
}
