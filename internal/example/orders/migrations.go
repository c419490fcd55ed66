package orders

import "github.com/fernandezvara/svckit"

// Migrations creates the orders schema. Apply with Pool.Migrate.
var Migrations = []svckit.Migration{
	{
		ID:          "0001",
		Description: "stock per sku",
		SQL: `CREATE TABLE stock (
    sku VARCHAR(64) PRIMARY KEY,
    available INT NOT NULL CHECK (available >= 0)
)`,
	},
	{
		ID:          "0002",
		Description: "orders",
		SQL: `CREATE TABLE orders (
    id BIGSERIAL PRIMARY KEY,
    customer VARCHAR(200) NOT NULL,
    sku VARCHAR(64) NOT NULL REFERENCES stock (sku),
    quantity INT NOT NULL CHECK (quantity > 0),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	},
	{
		ID:          "0003",
		Description: "orders by customer",
		SQL:         `CREATE INDEX orders_customer_idx ON orders (customer, id)`,
	},
}
