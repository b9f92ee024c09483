package config

import (
	"context"
	"strings"

	"github.com/rajendraambati/leaf-trace-ai-sub002/appctx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TenantGuardPlugin enforces multi-tenant isolation: queries, updates and
// deletes on any model carrying a business_id column are automatically scoped
// to the request's business_id.
//
// NOTE:
// - Raw SQL is not covered; it must include business_id manually.
// - Internal workers (outbox dispatcher) bypass via ContextKeySkipTenantScope.
type TenantGuardPlugin struct{}

func NewTenantGuardPlugin() *TenantGuardPlugin { return &TenantGuardPlugin{} }

func (p *TenantGuardPlugin) Name() string { return "tenant_guard" }

func (p *TenantGuardPlugin) Initialize(db *gorm.DB) error {
	if err := db.Callback().Query().Before("gorm:query").Register("tenant_guard:query", tenantGuardCallback); err != nil {
		return err
	}
	if err := db.Callback().Row().Before("gorm:row").Register("tenant_guard:row", tenantGuardCallback); err != nil {
		return err
	}
	if err := db.Callback().Update().Before("gorm:update").Register("tenant_guard:update", tenantGuardCallback); err != nil {
		return err
	}
	if err := db.Callback().Delete().Before("gorm:delete").Register("tenant_guard:delete", tenantGuardCallback); err != nil {
		return err
	}
	return nil
}

func tenantGuardCallback(db *gorm.DB) {
	if db == nil || db.Statement == nil || db.Statement.Context == nil {
		return
	}
	ctx := db.Statement.Context
	if appctx.GetBool(ctx, appctx.ContextKeySkipTenantScope) {
		return
	}
	businessId := businessIdFromContext(ctx)
	if businessId == "" {
		return
	}
	if db.Statement.Schema == nil || !schemaHasBusinessId(db) {
		return
	}
	// Don't duplicate an explicit tenant filter.
	if whereHasBusinessId(db.Statement.Clauses["WHERE"]) {
		return
	}
	db.Statement.AddClause(clause.Where{
		Exprs: []clause.Expression{
			clause.Eq{
				Column: clause.Column{Table: db.Statement.Table, Name: "business_id"},
				Value:  businessId,
			},
		},
	})
}

func businessIdFromContext(ctx context.Context) string {
	v, _ := appctx.GetString(ctx, appctx.ContextKeyBusinessId)
	return v
}

func schemaHasBusinessId(db *gorm.DB) bool {
	for _, f := range db.Statement.Schema.Fields {
		if strings.EqualFold(f.DBName, "business_id") {
			return true
		}
	}
	return false
}

func whereHasBusinessId(c clause.Clause) bool {
	w, ok := c.Expression.(clause.Where)
	if !ok {
		return false
	}
	for _, e := range w.Exprs {
		if exprHasBusinessId(e) {
			return true
		}
	}
	return false
}

func exprHasBusinessId(e clause.Expression) bool {
	switch v := e.(type) {
	case clause.Eq:
		return colIsBusinessId(v.Column)
	case clause.IN:
		return colIsBusinessId(v.Column)
	case clause.AndConditions:
		for _, x := range v.Exprs {
			if exprHasBusinessId(x) {
				return true
			}
		}
		return false
	case clause.OrConditions:
		for _, x := range v.Exprs {
			if exprHasBusinessId(x) {
				return true
			}
		}
		return false
	case clause.Expr:
		// Best-effort for raw conditions.
		return strings.Contains(strings.ToLower(v.SQL), "business_id")
	default:
		return false
	}
}

func colIsBusinessId(col any) bool {
	switch c := col.(type) {
	case string:
		return strings.EqualFold(c, "business_id")
	case clause.Column:
		return strings.EqualFold(c.Name, "business_id")
	default:
		return false
	}
}
