package database

import (
	"context"
	"fmt"
)

// Product is one sellable item row.
type Product struct {
	ID       string  `json:"id"`
	TenantID string  `json:"tenantId"`
	SKU      string  `json:"sku"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	IsActive bool    `json:"isActive"`
}

// StockItem is one inventory position.
type StockItem struct {
	ProductID    string `json:"productId"`
	SKU          string `json:"sku"`
	Name         string `json:"name"`
	Quantity     int    `json:"quantity"`
	ReorderPoint int    `json:"reorderPoint"`
}

// DashboardSummary aggregates the numbers the dashboard landing page shows.
type DashboardSummary struct {
	TenantID      string  `json:"tenantId"`
	ProductCount  int     `json:"productCount"`
	ActiveCount   int     `json:"activeCount"`
	LowStockCount int     `json:"lowStockCount"`
	TotalUnits    int     `json:"totalUnits"`
	StockValue    float64 `json:"stockValue"`
}

// InventoryRepository reads product and stock data through the instrumented
// connection. These are the expensive reads the cache-aside layer wraps.
type InventoryRepository struct {
	db *DB
}

// NewInventoryRepository creates the repository and ensures its schema.
func NewInventoryRepository(db *DB) (*InventoryRepository, error) {
	repo := &InventoryRepository{db: db}
	if err := repo.migrate(); err != nil {
		return nil, fmt.Errorf("inventory schema migration failed: %w", err)
	}
	return repo, nil
}

func (r *InventoryRepository) migrate() error {
	_, err := r.db.ExecContext(context.Background(), `
		CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			sku TEXT NOT NULL,
			name TEXT NOT NULL,
			price REAL NOT NULL DEFAULT 0,
			is_active INTEGER NOT NULL DEFAULT 1
		);
		CREATE TABLE IF NOT EXISTS inventory_items (
			product_id TEXT PRIMARY KEY REFERENCES products(id),
			quantity INTEGER NOT NULL DEFAULT 0,
			reorder_point INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_products_tenant ON products(tenant_id);
	`)
	return err
}

// ActiveProducts lists the tenant's active products.
func (r *InventoryRepository) ActiveProducts(ctx context.Context, tenantID string, limit, offset int) ([]Product, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, tenant_id, sku, name, price, is_active
		FROM products
		WHERE tenant_id = ? AND is_active = 1
		ORDER BY name
		LIMIT ? OFFSET ?`, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.TenantID, &p.SKU, &p.Name, &p.Price, &p.IsActive); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// LowStockItems lists positions at or under their reorder point.
func (r *InventoryRepository) LowStockItems(ctx context.Context, tenantID string) ([]StockItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT p.id, p.sku, p.name, i.quantity, i.reorder_point
		FROM inventory_items i
		JOIN products p ON p.id = i.product_id
		WHERE p.tenant_id = ? AND i.quantity <= i.reorder_point
		ORDER BY i.quantity ASC`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []StockItem
	for rows.Next() {
		var item StockItem
		if err := rows.Scan(&item.ProductID, &item.SKU, &item.Name, &item.Quantity, &item.ReorderPoint); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Summary computes the dashboard aggregate for a tenant.
func (r *InventoryRepository) Summary(ctx context.Context, tenantID string) (DashboardSummary, error) {
	summary := DashboardSummary{TenantID: tenantID}
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(p.id),
			COALESCE(SUM(p.is_active), 0),
			COALESCE(SUM(CASE WHEN i.quantity <= i.reorder_point THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(i.quantity), 0),
			COALESCE(SUM(i.quantity * p.price), 0)
		FROM products p
		LEFT JOIN inventory_items i ON i.product_id = p.id
		WHERE p.tenant_id = ?`, tenantID).
		Scan(&summary.ProductCount, &summary.ActiveCount, &summary.LowStockCount, &summary.TotalUnits, &summary.StockValue)
	return summary, err
}

// UpsertProduct writes one product with its stock position. Used by the
// seed data loader and the write endpoints.
func (r *InventoryRepository) UpsertProduct(ctx context.Context, p Product, quantity, reorderPoint int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (id, tenant_id, sku, name, price, is_active)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			sku = excluded.sku, name = excluded.name,
			price = excluded.price, is_active = excluded.is_active`,
		p.ID, p.TenantID, p.SKU, p.Name, p.Price, p.IsActive)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO inventory_items (product_id, quantity, reorder_point)
		VALUES (?, ?, ?)
		ON CONFLICT(product_id) DO UPDATE SET
			quantity = excluded.quantity, reorder_point = excluded.reorder_point`,
		p.ID, quantity, reorderPoint)
	return err
}

// AdjustStock applies a quantity delta and returns the new quantity.
func (r *InventoryRepository) AdjustStock(ctx context.Context, productID string, delta int) (int, error) {
	_, err := r.db.ExecContext(ctx,
		`UPDATE inventory_items SET quantity = quantity + ? WHERE product_id = ?`, delta, productID)
	if err != nil {
		return 0, err
	}
	var quantity int
	err = r.db.QueryRowContext(ctx,
		`SELECT quantity FROM inventory_items WHERE product_id = ?`, productID).Scan(&quantity)
	return quantity, err
}
