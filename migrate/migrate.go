// Package migrate derives DDL from the entity registry and prepares a
// fresh database: one table per entity, unique and foreign-key constraints
// taken from field metadata, plus the initial admin account.
package migrate

import (
	"context"
	"fmt"
	"strings"

	"github.com/huandu/go-sqlbuilder"
	"github.com/m-mizutani/goerr/v2"
	"github.com/xcono/parkrest/apperr"
	"github.com/xcono/parkrest/schema"
	"github.com/xcono/parkrest/store"
	"github.com/zeromicro/go-zero/core/logx"
	"golang.org/x/crypto/bcrypt"
)

// CreateTables issues CREATE TABLE IF NOT EXISTS for every registered
// entity, ordered so relation targets exist before their referrers.
func CreateTables(ctx context.Context, exec *store.Executor, registry *schema.Registry, flavor sqlbuilder.Flavor) error {
	ordered, err := dependencyOrder(registry)
	if err != nil {
		return err
	}

	for _, s := range ordered {
		ddl, err := TableDDL(registry, s, flavor)
		if err != nil {
			return err
		}
		logx.WithContext(ctx).Infow("creating table", logx.Field("table", s.PluralName))
		if _, err := exec.Exec(ctx, ddl); err != nil {
			return goerr.Wrap(err, "failed to create table", goerr.V("table", s.PluralName))
		}
	}
	return nil
}

// TableDDL renders the CREATE TABLE statement for one entity. Relation
// targets are resolved through the registry so foreign keys reference
// the target's declared table and primary key.
func TableDDL(registry *schema.Registry, s *schema.EntitySchema, flavor sqlbuilder.Flavor) (string, error) {
	var cols []string
	var constraints []string

	for _, f := range s.Fields {
		if f.Primary {
			cols = append(cols, fmt.Sprintf("%s %s", f.Name, primaryKeyType(flavor)))
			continue
		}

		col := fmt.Sprintf("%s %s", f.Name, columnType(f, flavor))
		if f.Required {
			col += " NOT NULL"
		}
		if f.Default != nil {
			col += fmt.Sprintf(" DEFAULT %s", defaultLiteral(f.Default))
		}
		if f.Unique {
			col += " UNIQUE"
		}
		cols = append(cols, col)

		if f.Type == schema.TypeRelation {
			target, err := registry.Resolve(f.RelationTo)
			if err != nil {
				return "", err
			}
			constraints = append(constraints,
				fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)",
					f.Name, target.PluralName, target.PrimaryField().Name))
		}
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n)",
		s.PluralName, strings.Join(append(cols, constraints...), ",\n  ")), nil
}

func primaryKeyType(flavor sqlbuilder.Flavor) string {
	switch flavor {
	case sqlbuilder.PostgreSQL:
		return "SERIAL PRIMARY KEY"
	case sqlbuilder.SQLite:
		return "INTEGER PRIMARY KEY AUTOINCREMENT"
	default:
		return "INT AUTO_INCREMENT PRIMARY KEY"
	}
}

func columnType(f schema.Field, flavor sqlbuilder.Flavor) string {
	switch f.Type {
	case schema.TypeNumber, schema.TypeRelation:
		return "INTEGER"
	case schema.TypeTextarea:
		return "TEXT"
	default:
		if flavor == sqlbuilder.MySQL {
			return "VARCHAR(255)"
		}
		return "TEXT"
	}
}

func defaultLiteral(v any) string {
	switch value := v.(type) {
	case string:
		return "'" + strings.ReplaceAll(value, "'", "''") + "'"
	default:
		return fmt.Sprintf("%v", value)
	}
}

// dependencyOrder sorts schemas so every relation target precedes its
// referrer. Cycles are a configuration error.
func dependencyOrder(registry *schema.Registry) ([]*schema.EntitySchema, error) {
	names := registry.Names()
	placed := make(map[string]bool, len(names))
	var ordered []*schema.EntitySchema

	for len(ordered) < len(names) {
		progressed := false
		for _, name := range names {
			if placed[name] {
				continue
			}
			s, err := registry.Resolve(name)
			if err != nil {
				return nil, err
			}
			ready := true
			for _, f := range s.Fields {
				if f.Type == schema.TypeRelation && f.RelationTo != name && !placed[f.RelationTo] {
					ready = false
					break
				}
			}
			if ready {
				ordered = append(ordered, s)
				placed[name] = true
				progressed = true
			}
		}
		if !progressed {
			return nil, apperr.Config("cyclic entity relations prevent table creation")
		}
	}
	return ordered, nil
}

// SeedAdmin inserts the initial admin account unless one with the given
// email already exists. The password is stored bcrypt-hashed.
func SeedAdmin(ctx context.Context, exec *store.Executor, flavor sqlbuilder.Flavor, email, password string) error {
	sb := sqlbuilder.NewSelectBuilder()
	sb.Select("COUNT(*)").From("users")
	sb.Where(sb.EQ("email", email))

	query, args := sb.BuildWithFlavor(flavor)
	var count int
	if err := exec.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return goerr.Wrap(err, "failed to check for existing admin")
	}
	if count > 0 {
		logx.WithContext(ctx).Infow("admin account already present", logx.Field("email", email))
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return goerr.Wrap(err, "failed to hash admin password")
	}

	ib := sqlbuilder.NewInsertBuilder()
	ib.InsertInto("users")
	ib.Cols("name", "email", "password", "role")
	ib.Values("Admin", email, string(hashed), "admin")

	query, args = ib.BuildWithFlavor(flavor)
	if _, err := exec.Exec(ctx, query, args...); err != nil {
		return goerr.Wrap(err, "failed to seed admin account")
	}
	logx.WithContext(ctx).Infow("admin account created", logx.Field("email", email))
	return nil
}
