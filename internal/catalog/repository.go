package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/stridewear/storefront/internal/domain"
)

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrCollectionNotFound = errors.New("collection not found")
)

// ProductRepository defines the catalog read operations. Consumers
// depend on this interface, not on the SQLite implementation.
type ProductRepository interface {
	ListProducts(ctx context.Context) ([]*domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	ListCollections(ctx context.Context) ([]*domain.Collection, error)
	GetCollection(ctx context.Context, slug string) (*domain.Collection, error)
	ListCollectionProducts(ctx context.Context, slug string) ([]*domain.Product, error)
	SearchProducts(ctx context.Context, query string) ([]*domain.Product, error)
	Close() error
}

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(migrationsPath string) error {
	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"sqlite",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

const productColumns = `id, name, description, price, image_url, created_at`

func (r *Repository) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products ORDER BY id`, productColumns)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

func (r *Repository) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = ?`, productColumns)

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product %d: %w", id, err)
	}
	return product, nil
}

func (r *Repository) ListCollections(ctx context.Context) ([]*domain.Collection, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, slug, name, description
		FROM collections
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query collections: %w", err)
	}
	defer rows.Close()

	var collections []*domain.Collection
	for rows.Next() {
		c := &domain.Collection{}
		if err := rows.Scan(&c.ID, &c.Slug, &c.Name, &c.Description); err != nil {
			return nil, fmt.Errorf("failed to scan collection: %w", err)
		}
		collections = append(collections, c)
	}
	return collections, rows.Err()
}

func (r *Repository) GetCollection(ctx context.Context, slug string) (*domain.Collection, error) {
	c := &domain.Collection{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, slug, name, description
		FROM collections
		WHERE slug = ?
	`, slug).Scan(&c.ID, &c.Slug, &c.Name, &c.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCollectionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get collection %q: %w", slug, err)
	}
	return c, nil
}

func (r *Repository) ListCollectionProducts(ctx context.Context, slug string) ([]*domain.Product, error) {
	query := `
		SELECT p.id, p.name, p.description, p.price, p.image_url, p.created_at
		FROM products p
		JOIN collection_products cp ON cp.product_id = p.id
		JOIN collections c ON c.id = cp.collection_id
		WHERE c.slug = ?
		ORDER BY p.id
	`

	rows, err := r.db.QueryContext(ctx, query, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection products: %w", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

// SearchProducts matches the query against name and description,
// case-insensitively. An empty query returns no results rather than
// the whole catalog.
func (r *Repository) SearchProducts(ctx context.Context, query string) ([]*domain.Product, error) {
	if query == "" {
		return nil, nil
	}

	pattern := "%" + query + "%"
	q := fmt.Sprintf(`
		SELECT %s FROM products
		WHERE name LIKE ? OR description LIKE ?
		ORDER BY id
	`, productColumns)

	rows, err := r.db.QueryContext(ctx, q, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

func (r *Repository) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanProduct reads one product row. Prices are stored as TEXT and
// parsed into decimals so sums stay exact.
func scanProduct(row rowScanner) (*domain.Product, error) {
	p := &domain.Product{}
	var priceText string
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &priceText, &p.ImageURL, &p.CreatedAt); err != nil {
		return nil, err
	}

	price, err := decimal.NewFromString(priceText)
	if err != nil {
		return nil, fmt.Errorf("invalid stored price %q: %w", priceText, err)
	}
	p.Price = price
	return p, nil
}

func scanProducts(rows *sql.Rows) ([]*domain.Product, error) {
	var products []*domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
