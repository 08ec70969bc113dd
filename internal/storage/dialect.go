package storage

import (
	"strconv"
	"strings"
)

type dialect struct {
	name       string
	driver     string
	migrations []string
	// upsert is appended to INSERT INTO pages (...) VALUES (...).
	upsert string
	rebind func(string) string
}

var pageColumns = []string{"shop", "slug", "status", "components_json", "editor_json", "version", "published_at", "updated_at"}

func conflictUpsert() string {
	sets := make([]string, 0, len(pageColumns))
	for _, c := range pageColumns {
		sets = append(sets, c+" = excluded."+c)
	}
	return " ON CONFLICT(id) DO UPDATE SET " + strings.Join(sets, ", ")
}

func mysqlUpsert() string {
	sets := make([]string, 0, len(pageColumns))
	for _, c := range pageColumns {
		sets = append(sets, c+" = VALUES("+c+")")
	}
	return " ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
}

func questionMarks(q string) string { return q }

// dollarParams turns ? placeholders into $1, $2, ...
func dollarParams(q string) string {
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

var sqliteDialect = &dialect{
	name:   "sqlite",
	driver: "sqlite",
	upsert: conflictUpsert(),
	rebind: questionMarks,
	migrations: []string{
		`CREATE TABLE IF NOT EXISTS pages (
			id TEXT PRIMARY KEY,
			shop TEXT NOT NULL DEFAULT '',
			slug TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'draft',
			components_json TEXT NOT NULL DEFAULT '[]',
			editor_json TEXT NOT NULL DEFAULT '{}',
			version INTEGER NOT NULL DEFAULT 0,
			published_at DATETIME,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pages_shop ON pages(shop)`,
		`CREATE TABLE IF NOT EXISTS page_revisions (
			id TEXT PRIMARY KEY,
			page_id TEXT NOT NULL,
			label TEXT NOT NULL DEFAULT '',
			version INTEGER NOT NULL DEFAULT 0,
			components_json TEXT NOT NULL DEFAULT '[]',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_page_revisions_page ON page_revisions(page_id)`,
	},
}

var postgresMigrations = []string{
	`CREATE TABLE IF NOT EXISTS pages (
		id TEXT PRIMARY KEY,
		shop TEXT NOT NULL DEFAULT '',
		slug TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'draft',
		components_json TEXT NOT NULL DEFAULT '[]',
		editor_json TEXT NOT NULL DEFAULT '{}',
		version BIGINT NOT NULL DEFAULT 0,
		published_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pages_shop ON pages(shop)`,
	`CREATE TABLE IF NOT EXISTS page_revisions (
		id TEXT PRIMARY KEY,
		page_id TEXT NOT NULL,
		label TEXT NOT NULL DEFAULT '',
		version BIGINT NOT NULL DEFAULT 0,
		components_json TEXT NOT NULL DEFAULT '[]',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_page_revisions_page ON page_revisions(page_id)`,
}

var postgresDialect = &dialect{
	name:       "postgres",
	driver:     "postgres",
	upsert:     conflictUpsert(),
	rebind:     dollarParams,
	migrations: postgresMigrations,
}

// pgxDialect is postgres through the pgx stdlib driver.
var pgxDialect = &dialect{
	name:       "pgx",
	driver:     "pgx",
	upsert:     conflictUpsert(),
	rebind:     dollarParams,
	migrations: postgresMigrations,
}

var mysqlDialect = &dialect{
	name:   "mysql",
	driver: "mysql",
	upsert: mysqlUpsert(),
	rebind: questionMarks,
	migrations: []string{
		`CREATE TABLE IF NOT EXISTS pages (
			id VARCHAR(64) PRIMARY KEY,
			shop VARCHAR(255) NOT NULL DEFAULT '',
			slug VARCHAR(255) NOT NULL DEFAULT '',
			status VARCHAR(32) NOT NULL DEFAULT 'draft',
			components_json LONGTEXT NOT NULL,
			editor_json LONGTEXT NOT NULL,
			version BIGINT NOT NULL DEFAULT 0,
			published_at DATETIME(6) NULL,
			created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
			updated_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
			INDEX idx_pages_shop (shop)
		) CHARACTER SET utf8mb4`,
		`CREATE TABLE IF NOT EXISTS page_revisions (
			id VARCHAR(64) PRIMARY KEY,
			page_id VARCHAR(64) NOT NULL,
			label VARCHAR(255) NOT NULL DEFAULT '',
			version BIGINT NOT NULL DEFAULT 0,
			components_json LONGTEXT NOT NULL,
			created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
			INDEX idx_page_revisions_page (page_id)
		) CHARACTER SET utf8mb4`,
	},
}

var dialects = map[string]*dialect{
	"sqlite":   sqliteDialect,
	"postgres": postgresDialect,
	"pgx":      pgxDialect,
	"mysql":    mysqlDialect,
}
