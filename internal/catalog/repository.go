package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kfujiwara/orderdesk/internal/domain"
	"github.com/kfujiwara/orderdesk/internal/store"
)

// Repository serves the reference data side of the back office: shops get
// full CRUD, products/sites/users are read-only here.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) shopCodeTaken(ctx context.Context, q interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}, code, excludeID string) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM shops WHERE code = $1 AND id <> $2
	`, code, excludeID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check shop code: %w", err)
	}
	return count > 0, nil
}

func (r *Repository) CreateShop(ctx context.Context, siteID *string, code, name string) (*domain.Shop, error) {
	id := uuid.New().String()
	err := store.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if siteID != nil {
			var exists int
			err := tx.QueryRowContext(ctx, "SELECT 1 FROM sites WHERE id = $1", *siteID).Scan(&exists)
			if err == sql.ErrNoRows {
				return &domain.NotFoundError{Entity: "site", ID: *siteID}
			}
			if err != nil {
				return fmt.Errorf("check site: %w", err)
			}
		}

		taken, err := r.shopCodeTaken(ctx, tx, code, id)
		if err != nil {
			return err
		}
		if taken {
			return &domain.UniquenessConflictError{Entity: "shop", Code: code}
		}

		now := time.Now().UTC()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO shops (id, site_id, code, name, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $5)
		`, id, siteID, code, name, now)
		if err != nil {
			return fmt.Errorf("insert shop: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetShopByID(ctx, id)
}

func (r *Repository) GetShopByID(ctx context.Context, id string) (*domain.Shop, error) {
	s := &domain.Shop{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, site_id, code, name, created_at, updated_at FROM shops WHERE id = $1
	`, id).Scan(&s.ID, &s.SiteID, &s.Code, &s.Name, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load shop: %w", err)
	}
	return s, nil
}

func (r *Repository) GetShopByCode(ctx context.Context, code string) (*domain.Shop, error) {
	s := &domain.Shop{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, site_id, code, name, created_at, updated_at FROM shops WHERE code = $1
	`, code).Scan(&s.ID, &s.SiteID, &s.Code, &s.Name, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load shop: %w", err)
	}
	return s, nil
}

func (r *Repository) ListShops(ctx context.Context) ([]domain.Shop, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, site_id, code, name, created_at, updated_at FROM shops ORDER BY code
	`)
	if err != nil {
		return nil, fmt.Errorf("list shops: %w", err)
	}
	defer func() { _ = rows.Close() }()

	shops := []domain.Shop{}
	for rows.Next() {
		var s domain.Shop
		if err := rows.Scan(&s.ID, &s.SiteID, &s.Code, &s.Name, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		shops = append(shops, s)
	}
	return shops, rows.Err()
}

func (r *Repository) UpdateShop(ctx context.Context, id string, code, name *string) (*domain.Shop, error) {
	err := store.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `
			SELECT 1 FROM shops WHERE id = $1 FOR UPDATE
		`, id).Scan(&exists)
		if err == sql.ErrNoRows {
			return &domain.NotFoundError{Entity: "shop", ID: id}
		}
		if err != nil {
			return fmt.Errorf("lock shop: %w", err)
		}

		if code != nil {
			taken, err := r.shopCodeTaken(ctx, tx, *code, id)
			if err != nil {
				return err
			}
			if taken {
				return &domain.UniquenessConflictError{Entity: "shop", Code: *code}
			}
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE shops SET
				code = COALESCE($1, code),
				name = COALESCE($2, name),
				updated_at = $3
			WHERE id = $4
		`, code, name, time.Now().UTC(), id)
		if err != nil {
			return fmt.Errorf("update shop: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetShopByID(ctx, id)
}

// DeleteShop removes a shop with no linked orders and no linked shipments.
func (r *Repository) DeleteShop(ctx context.Context, id string) error {
	return store.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `
			SELECT 1 FROM shops WHERE id = $1 FOR UPDATE
		`, id).Scan(&exists)
		if err == sql.ErrNoRows {
			return &domain.NotFoundError{Entity: "shop", ID: id}
		}
		if err != nil {
			return fmt.Errorf("lock shop: %w", err)
		}

		var linkedOrders int
		if err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM orders WHERE shop_id = $1
		`, id).Scan(&linkedOrders); err != nil {
			return fmt.Errorf("count linked orders: %w", err)
		}
		if linkedOrders > 0 {
			return &domain.DependencyConflictError{Entity: "shop", ID: id, Reason: "orders reference this shop"}
		}

		var linkedShipments int
		if err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM shipments WHERE shop_id = $1
		`, id).Scan(&linkedShipments); err != nil {
			return fmt.Errorf("count linked shipments: %w", err)
		}
		if linkedShipments > 0 {
			return &domain.DependencyConflictError{Entity: "shop", ID: id, Reason: "shipments reference this shop"}
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM shops WHERE id = $1", id); err != nil {
			return fmt.Errorf("delete shop: %w", err)
		}
		return nil
	})
}

func (r *Repository) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, category_id, code, name, price, created_at FROM products ORDER BY code
	`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer func() { _ = rows.Close() }()

	products := []domain.Product{}
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.CategoryID, &p.Code, &p.Name, &p.Price, &p.CreatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *Repository) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	p := &domain.Product{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, category_id, code, name, price, created_at FROM products WHERE id = $1
	`, id).Scan(&p.ID, &p.CategoryID, &p.Code, &p.Name, &p.Price, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load product: %w", err)
	}
	return p, nil
}

func (r *Repository) GetSiteByID(ctx context.Context, id string) (*domain.Site, error) {
	s := &domain.Site{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, code, name, created_at FROM sites WHERE id = $1
	`, id).Scan(&s.ID, &s.Code, &s.Name, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load site: %w", err)
	}
	return s, nil
}

func (r *Repository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	u := &domain.User{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, created_at FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}
