package models_test

import (
	"context"
	"strings"
	"testing"

	"github.com/mmdatafocus/inventory_backend/config"
	"github.com/mmdatafocus/inventory_backend/models"
	"github.com/mmdatafocus/inventory_backend/utils"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	db, err := config.ConnectSQLite("file:" + name + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("ConnectSQLite: %v", err)
	}
	if err := models.MigrateTable(db); err != nil {
		t.Fatalf("MigrateTable: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func tenantCtx(businessId string) context.Context {
	ctx := utils.SetBusinessIdInContext(context.Background(), businessId)
	return utils.SetUserIdInContext(ctx, 1)
}

func mustEnsure(t *testing.T, ctx context.Context, db *gorm.DB, code string, name string, allowChildren bool) int {
	t.Helper()
	id, err := models.EnsureAccount(ctx, db, models.EnsureAccountInput{Code: code, Name: name, AllowChildren: allowChildren})
	if err != nil {
		t.Fatalf("EnsureAccount %s: %v", code, err)
	}
	return id
}
