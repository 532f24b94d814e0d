package hirewire

import (
	"embed"
)

//go:embed data/sql/migrations
var migrationsFS embed.FS

// GetMigrationsFS returns the migration files for this package
func GetMigrationsFS() embed.FS {
	return migrationsFS
}

//go:embed all:views
var viewsFS embed.FS

// GetViewsFS returns the embedded view templates
func GetViewsFS() embed.FS {
	return viewsFS
}

//go:embed all:public
var assetsFS embed.FS

// GetAssetsFS returns the embedded static assets
func GetAssetsFS() embed.FS {
	return assetsFS
}
