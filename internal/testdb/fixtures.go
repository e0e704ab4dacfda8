package testdb

import (
	"fmt"
	"sort"

	"github.com/Masterminds/squirrel"
)

// Schema creates every dishdb table with SQLite column types
const Schema = `
CREATE TABLE users (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE,
	phone TEXT,
	role TEXT NOT NULL DEFAULT 'customer',
	avatarUrl TEXT,
	createdAt TEXT DEFAULT CURRENT_TIMESTAMP,
	updatedAt TEXT
);
CREATE TABLE restaurants (
	id INTEGER PRIMARY KEY,
	ownerId INTEGER REFERENCES users(id),
	name TEXT NOT NULL,
	description TEXT,
	cuisine TEXT,
	address TEXT,
	latitude REAL,
	longitude REAL,
	phone TEXT,
	rating REAL,
	status TEXT NOT NULL DEFAULT 'open',
	deliveryFee REAL,
	minimumOrder REAL,
	openingHours TEXT,
	specialHolidays TEXT,
	createdAt TEXT DEFAULT CURRENT_TIMESTAMP,
	updatedAt TEXT
);
CREATE TABLE categories (
	id INTEGER PRIMARY KEY,
	restaurantId INTEGER NOT NULL REFERENCES restaurants(id),
	name TEXT NOT NULL,
	description TEXT,
	sortOrder INTEGER NOT NULL DEFAULT 0,
	isDefault BOOLEAN NOT NULL DEFAULT 0,
	createdAt TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE menu_items (
	id INTEGER PRIMARY KEY,
	restaurantId INTEGER NOT NULL REFERENCES restaurants(id),
	categoryId INTEGER REFERENCES categories(id),
	name TEXT NOT NULL,
	description TEXT,
	price REAL NOT NULL,
	imageUrl TEXT,
	isAvailable BOOLEAN NOT NULL DEFAULT 1,
	options TEXT,
	tags TEXT,
	createdAt TEXT DEFAULT CURRENT_TIMESTAMP,
	updatedAt TEXT
);
CREATE TABLE addresses (
	id INTEGER PRIMARY KEY,
	userId INTEGER NOT NULL REFERENCES users(id),
	label TEXT,
	line1 TEXT NOT NULL,
	line2 TEXT,
	city TEXT NOT NULL,
	postcode TEXT,
	latitude REAL,
	longitude REAL,
	isDefault BOOLEAN NOT NULL DEFAULT 0,
	createdAt TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE orders (
	id INTEGER PRIMARY KEY,
	customerId INTEGER NOT NULL REFERENCES users(id),
	restaurantId INTEGER NOT NULL REFERENCES restaurants(id),
	addressId INTEGER REFERENCES addresses(id),
	status TEXT NOT NULL,
	subtotal REAL,
	deliveryFee REAL,
	total REAL NOT NULL,
	paymentStatus TEXT,
	notes TEXT,
	metadata TEXT,
	createdAt TEXT DEFAULT CURRENT_TIMESTAMP,
	updatedAt TEXT
);
CREATE TABLE order_items (
	id INTEGER PRIMARY KEY,
	orderId INTEGER NOT NULL REFERENCES orders(id),
	menuItemId INTEGER NOT NULL REFERENCES menu_items(id),
	quantity INTEGER NOT NULL CHECK (quantity > 0),
	unitPrice REAL NOT NULL,
	options TEXT,
	notes TEXT
);
CREATE TABLE reviews (
	id INTEGER PRIMARY KEY,
	orderId INTEGER REFERENCES orders(id),
	customerId INTEGER NOT NULL REFERENCES users(id),
	restaurantId INTEGER NOT NULL REFERENCES restaurants(id),
	rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
	comment TEXT,
	createdAt TEXT DEFAULT CURRENT_TIMESTAMP
)
`

// Fixture is a set of rows for one table
type Fixture struct {
	Table string
	Rows  []map[string]interface{}
}

// Seed inserts fixtures in order
func (tdb *TestDB) Seed(fixtures ...Fixture) {
	tdb.t.Helper()
	for _, f := range fixtures {
		for i, row := range f.Rows {
			if err := tdb.insert(f.Table, row); err != nil {
				tdb.t.Fatalf("Failed to seed %s row %d: %v", f.Table, i, err)
			}
		}
	}
}

func (tdb *TestDB) insert(table string, row map[string]interface{}) error {
	columns := make([]string, 0, len(row))
	for col := range row {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	values := make([]interface{}, len(columns))
	for i, col := range columns {
		values[i] = row[col]
	}

	query, args, err := squirrel.Insert(table).Columns(columns...).Values(values...).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	_, err = tdb.DB.Exec(query, args...)
	return err
}

// Common test fixtures
var (
	Users = Fixture{Table: "users", Rows: []map[string]interface{}{
		{"id": 1, "name": "Ada", "email": "ada@example.com", "role": "owner"},
		{"id": 2, "name": "Grace", "email": "grace@example.com", "role": "customer"},
	}}

	Restaurants = Fixture{Table: "restaurants", Rows: []map[string]interface{}{
		{"id": 1, "ownerId": 1, "name": "Blue Fin", "cuisine": "sushi", "status": "open", "rating": 4.6,
			"latitude": 51.5072, "longitude": -0.1276, "openingHours": `{"mon":"9-17"}`, "specialHolidays": `["2026-12-25"]`,
			"createdAt": "2026-01-01 10:00:00"},
		{"id": 2, "ownerId": 1, "name": "Thai Garden", "cuisine": "thai", "status": "open", "rating": 4.1,
			"latitude": 51.5155, "longitude": -0.1410, "createdAt": "2026-01-02 10:00:00"},
		{"id": 3, "ownerId": nil, "name": "Old Mill", "cuisine": "british", "status": "closed", "rating": 3.2,
			"latitude": 53.4808, "longitude": -2.2426, "createdAt": "2026-01-03 10:00:00"},
	}}

	Categories = Fixture{Table: "categories", Rows: []map[string]interface{}{
		{"id": 1, "restaurantId": 2, "name": "Starters", "sortOrder": 1, "isDefault": true},
		{"id": 2, "restaurantId": 2, "name": "Mains", "sortOrder": 2, "isDefault": false},
	}}

	MenuItems = Fixture{Table: "menu_items", Rows: []map[string]interface{}{
		{"id": 1, "restaurantId": 2, "categoryId": 2, "name": "Green Curry", "price": 9.5, "tags": `["spicy"]`},
		{"id": 2, "restaurantId": 2, "categoryId": 1, "name": "Spring Rolls", "price": 4.0, "isAvailable": false},
		{"id": 3, "restaurantId": 2, "categoryId": nil, "name": "Red Curry", "price": 9.0},
	}}

	Addresses = Fixture{Table: "addresses", Rows: []map[string]interface{}{
		{"id": 1, "userId": 2, "label": "home", "line1": "1 High St", "city": "London", "isDefault": true},
		{"id": 2, "userId": 2, "label": "work", "line1": "2 Low St", "city": "London", "isDefault": false},
	}}
)

// Catalog is the fixture set most tests start from
func Catalog() []Fixture {
	return []Fixture{Users, Restaurants, Categories, MenuItems, Addresses}
}
